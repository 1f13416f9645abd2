package fridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"fridge-vision/internal/api/handlers"
	"fridge-vision/internal/core/fridge"
	"fridge-vision/internal/core/image"
	"fridge-vision/internal/core/recipe"
	"fridge-vision/internal/infrastructure/config"
	"fridge-vision/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 接受的 multipart 欄位名稱
var uploadFields = []string{"image", "file"}

// ImageRequest JSON 上傳格式
type ImageRequest struct {
	Image string `json:"image" binding:"required"`
}

// Handler 冰箱照片處理程序
type Handler struct {
	service *fridge.Service
	images  *image.Service
	cfg     *config.Config
}

// NewHandler 創建冰箱照片處理程序
func NewHandler(service *fridge.Service, images *image.Service, cfg *config.Config) *Handler {
	return &Handler{service: service, images: images, cfg: cfg}
}

// RegisterRoutes 註冊 /fridge 路由
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/fridge")
	g.POST("/detect", h.HandleDetect)
	g.POST("/analyze", h.HandleAnalyze)
}

// HandleDetect POST /fridge/detect
func (h *Handler) HandleDetect(c *gin.Context) {
	opts, err := h.options(c)
	if err != nil {
		handlers.Error(c, err)
		return
	}
	data, err := h.readImage(c)
	if err != nil {
		handlers.Error(c, err)
		return
	}

	analysis, err := h.service.Analyze(c.Request.Context(), data, opts)
	if err != nil {
		handlers.Error(c, err)
		return
	}

	handlers.Success(c, http.StatusOK,
		fmt.Sprintf("Successfully detected %d ingredients", len(analysis.Ingredients)),
		detectionBody(analysis))
}

// HandleAnalyze POST /fridge/analyze 偵測後直接推薦食譜
func (h *Handler) HandleAnalyze(c *gin.Context) {
	if !h.cfg.Features.EnableRecipeRecommendations {
		handlers.Error(c, common.ErrFeatureDisabled.Wrap(fmt.Errorf("recipe recommendations are disabled")))
		return
	}

	opts, err := h.options(c)
	if err != nil {
		handlers.Error(c, err)
		return
	}
	req, err := h.recommendRequest(c)
	if err != nil {
		handlers.Error(c, err)
		return
	}
	data, err := h.readImage(c)
	if err != nil {
		handlers.Error(c, err)
		return
	}

	result, err := h.service.AnalyzeAndRecommend(c.Request.Context(), data, opts, req)
	if err != nil {
		handlers.Error(c, err)
		return
	}

	body := detectionBody(result.Analysis)
	body["strategy"] = result.Recommendations.Strategy
	body["fallback"] = result.Recommendations.Fallback
	body["recipes"] = result.Recommendations.Recipes
	handlers.Success(c, http.StatusOK,
		fmt.Sprintf("Detected %d ingredients and found %d recipes",
			len(result.Ingredients), len(result.Recommendations.Recipes)),
		body)
}

func detectionBody(a *fridge.Analysis) gin.H {
	detected := make([]gin.H, 0, len(a.Ingredients))
	for _, ing := range a.Ingredients {
		detected = append(detected, gin.H{
			"class_name":        ing.Ingredient,
			"confidence":        ing.Confidence,
			"count":             ing.Count,
			"size_category":     ing.SizeCategory,
			"quantity_estimate": ing.QuantityEstimate,
			"quantity_value":    ing.QuantityValue,
			"estimated_unit":    ing.EstimatedUnit,
			"source":            ing.Source,
			"found_in_text":     ing.FoundInText,
		})
	}

	body := gin.H{
		"detector":             a.Detector,
		"detected_ingredients": detected,
		"ingredient_names":     a.IngredientNames,
		"total_items":          a.Quantities.TotalItemsDetected,
		"image_info":           a.Image,
		"quantities":           a.Quantities,
		"processing_time_ms":   a.ProcessingTimeMs,
	}
	if a.OCR != nil {
		body["ocr_results"] = a.OCR
	}
	if a.ExpiryDate != "" {
		body["expiry_date"] = a.ExpiryDate
	}
	if len(a.TextIngredients) > 0 {
		body["text_ingredients"] = a.TextIngredients
	}
	return body
}

func (h *Handler) options(c *gin.Context) (fridge.Options, error) {
	enableOCR, err := handlers.BoolQuery(c, "enable_ocr", h.cfg.Features.EnableOCR)
	if err != nil {
		return fridge.Options{}, err
	}
	threshold, err := handlers.FloatQuery(c, "confidence_threshold", h.cfg.Detector.ConfThreshold, 0, 1)
	if err != nil {
		return fridge.Options{}, err
	}
	return fridge.Options{
		EnableOCR:           enableOCR && h.cfg.Features.EnableOCR,
		ConfidenceThreshold: threshold,
	}, nil
}

func (h *Handler) recommendRequest(c *gin.Context) (recipe.Request, error) {
	topK, err := handlers.IntQuery(c, "top_k", h.cfg.Recipe.DefaultTopK, 1, h.cfg.Recipe.MaxTopK)
	if err != nil {
		return recipe.Request{}, err
	}
	minMatch, err := handlers.IntQuery(c, "min_match", h.cfg.Recipe.MinMatch, 1, 1<<20)
	if err != nil {
		return recipe.Request{}, err
	}
	useLLM, err := handlers.BoolQuery(c, "use_llm", false)
	if err != nil {
		return recipe.Request{}, err
	}
	return recipe.Request{
		TopK:                topK,
		MinMatch:            minMatch,
		PreferLLM:           useLLM,
		DietaryRestrictions: handlers.ListQuery(c, "dietary_restrictions"),
	}, nil
}

// readImage 讀取 multipart 檔案或 JSON 中的 data URI / URL
func (h *Handler) readImage(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		for _, field := range uploadFields {
			fh, err := c.FormFile(field)
			if err != nil {
				continue
			}
			common.LogInfo("收到上傳圖片",
				zap.String("filename", fh.Filename),
				zap.Int64("size", fh.Size),
			)
			if limit := h.images.MaxSizeBytes(); limit > 0 && fh.Size > limit {
				return nil, common.ErrInvalidImageSize.Wrap(fmt.Errorf("%d bytes exceeds %d", fh.Size, limit))
			}
			return readUpload(fh)
		}
		return nil, common.ErrInvalidRequest.Wrap(fmt.Errorf("multipart field %q is required", uploadFields[0]))
	}

	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, common.ErrInvalidRequest.Wrap(err)
	}
	common.LogInfo("收到 JSON 圖片", zap.String("image_type", imageRefType(req.Image)))
	return h.loadRef(c.Request.Context(), req.Image)
}

func (h *Handler) loadRef(ctx context.Context, ref string) ([]byte, error) {
	data, err := h.images.Load(ctx, ref)
	if errors.Is(err, image.ErrImageTooLarge) {
		return nil, common.ErrInvalidImageSize.Wrap(err)
	}
	if err != nil {
		return nil, common.ErrInvalidImageFormat.Wrap(err)
	}
	return data, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, common.ErrInvalidRequest.Wrap(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, common.ErrInvalidRequest.Wrap(err)
	}
	return data, nil
}

// imageRefType 圖片來源類型（用於日誌記錄）
func imageRefType(ref string) string {
	switch {
	case ref == "":
		return "empty"
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return "url"
	case strings.HasPrefix(ref, "data:image/"):
		return "data_uri"
	default:
		return "base64"
	}
}
