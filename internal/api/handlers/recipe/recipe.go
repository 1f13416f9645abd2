package recipe

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"fridge-vision/internal/api/handlers"
	core "fridge-vision/internal/core/recipe"
	"fridge-vision/internal/infrastructure/config"
	"fridge-vision/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 列表上限
const maxListLimit = 100

// Recommender 食譜推薦
type Recommender interface {
	Recommend(ctx context.Context, req core.Request) core.Result
}

// RecommendRequest POST /recipes/recommend 的請求內容
type RecommendRequest struct {
	Ingredients         []string `json:"ingredients"`
	TopK                *int     `json:"top_k,omitempty"`
	MinMatch            *int     `json:"min_match,omitempty"`
	UseLLM              bool     `json:"use_llm"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
}

// RefineRequest 針對某道食譜提問
type RefineRequest struct {
	RecipeName  string   `json:"recipe_name" binding:"required"`
	Ingredients []string `json:"ingredients"`
	Question    string   `json:"question" binding:"required"`
}

// Handler 食譜處理程序
type Handler struct {
	store       *core.Store
	recommender Recommender
	generator   *core.LLMGenerator
	cfg         config.RecipeConfig
	enabled     bool
}

// NewHandler 創建新的食譜處理程序，generator 可為 nil
func NewHandler(store *core.Store, recommender Recommender, generator *core.LLMGenerator, cfg config.RecipeConfig, enabled bool) *Handler {
	return &Handler{
		store:       store,
		recommender: recommender,
		generator:   generator,
		cfg:         cfg,
		enabled:     enabled,
	}
}

// RegisterRoutes 註冊 /recipes 路由
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/recipes")
	g.GET("", h.HandleList)
	g.GET("/search", h.HandleSearch)
	g.GET("/recommend", h.HandleRecommendQuery)
	g.POST("/recommend", h.HandleRecommendJSON)
	g.POST("/refine", h.HandleRefine)
	g.GET("/:id", h.HandleGet)
}

// HandleRecommendQuery GET /recipes/recommend?ingredients=a,b&top_k=5
func (h *Handler) HandleRecommendQuery(c *gin.Context) {
	topK, err := handlers.IntQuery(c, "top_k", h.cfg.DefaultTopK, 1, h.cfg.MaxTopK)
	if err != nil {
		handlers.Error(c, err)
		return
	}
	minMatch, err := handlers.IntQuery(c, "min_match", h.cfg.MinMatch, 1, 1<<20)
	if err != nil {
		handlers.Error(c, err)
		return
	}
	useLLM, err := handlers.BoolQuery(c, "use_llm", false)
	if err != nil {
		handlers.Error(c, err)
		return
	}

	h.recommend(c, core.Request{
		Ingredients:         handlers.ListQuery(c, "ingredients"),
		TopK:                topK,
		MinMatch:            minMatch,
		PreferLLM:           useLLM,
		DietaryRestrictions: handlers.ListQuery(c, "dietary_restrictions"),
	})
}

// HandleRecommendJSON POST /recipes/recommend
func (h *Handler) HandleRecommendJSON(c *gin.Context) {
	var body RecommendRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handlers.Error(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	req := core.Request{
		Ingredients:         common.SplitList(body.Ingredients),
		TopK:                h.cfg.DefaultTopK,
		MinMatch:            h.cfg.MinMatch,
		PreferLLM:           body.UseLLM,
		DietaryRestrictions: body.DietaryRestrictions,
	}
	if body.TopK != nil {
		if *body.TopK < 1 || *body.TopK > h.cfg.MaxTopK {
			handlers.Error(c, common.NewValidationError(fmt.Sprintf("top_k must be within [1,%d]", h.cfg.MaxTopK)))
			return
		}
		req.TopK = *body.TopK
	}
	if body.MinMatch != nil {
		if *body.MinMatch < 1 {
			handlers.Error(c, common.NewValidationError("min_match must be at least 1"))
			return
		}
		req.MinMatch = *body.MinMatch
	}

	h.recommend(c, req)
}

func (h *Handler) recommend(c *gin.Context, req core.Request) {
	if !h.enabled {
		handlers.Error(c, common.ErrFeatureDisabled.Wrap(fmt.Errorf("recipe recommendations are disabled")))
		return
	}
	if len(common.NormalizeNames(req.Ingredients)) == 0 {
		handlers.Error(c, common.ErrNoIngredients)
		return
	}

	common.LogInfo("開始推薦食譜",
		zap.Int("ingredients", len(req.Ingredients)),
		zap.Int("top_k", req.TopK),
		zap.Bool("use_llm", req.PreferLLM),
	)

	result := h.recommender.Recommend(c.Request.Context(), req)
	handlers.Success(c, http.StatusOK, fmt.Sprintf("Found %d matching recipes", len(result.Recipes)), gin.H{
		"ingredients_provided": req.Ingredients,
		"strategy":             result.Strategy,
		"fallback":             result.Fallback,
		"recipes":              result.Recipes,
		"total":                len(result.Recipes),
	})
}

// HandleList GET /recipes?limit=20
func (h *Handler) HandleList(c *gin.Context) {
	limit, err := handlers.IntQuery(c, "limit", h.cfg.ListLimit, 1, maxListLimit)
	if err != nil {
		handlers.Error(c, err)
		return
	}

	recipes := h.store.List(limit)
	handlers.Success(c, http.StatusOK, "", gin.H{
		"recipes":      recipes,
		"total":        len(recipes),
		"catalog_size": h.store.Len(),
	})
}

// HandleSearch GET /recipes/search?query=
func (h *Handler) HandleSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		handlers.Error(c, common.NewValidationError("query is required"))
		return
	}

	results := h.store.Search(query)
	common.LogDebug("食譜搜尋", zap.String("query", query), zap.Int("count", len(results)))
	handlers.Success(c, http.StatusOK, "", gin.H{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

// HandleGet GET /recipes/:id
func (h *Handler) HandleGet(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		handlers.Error(c, common.NewValidationError("recipe id must be an integer"))
		return
	}

	r, ok := h.store.FindByID(id)
	if !ok {
		handlers.Error(c, common.ErrRecipeNotFound.Wrap(fmt.Errorf("recipe %d not found", id)))
		return
	}
	handlers.Success(c, http.StatusOK, "", gin.H{"recipe": r})
}

// HandleRefine POST /recipes/refine
func (h *Handler) HandleRefine(c *gin.Context) {
	var req RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.Error(c, common.ErrInvalidRequest.Wrap(err))
		return
	}

	ctx := c.Request.Context()
	if !h.generator.Available(ctx) {
		handlers.Error(c, common.ErrLLMUnavailable)
		return
	}

	answer, err := h.generator.Refine(ctx, req.RecipeName, req.Ingredients, req.Question)
	if err != nil {
		handlers.Error(c, common.ErrAIServiceError.Wrap(err))
		return
	}
	handlers.Success(c, http.StatusOK, "", gin.H{
		"recipe_name": req.RecipeName,
		"question":    req.Question,
		"answer":      answer,
	})
}
