package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"fridge-vision/internal/core/queue"
	"fridge-vision/internal/core/recipe"
	"fridge-vision/internal/infrastructure/config"
	"fridge-vision/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 就緒狀態
const (
	StatusReady    = "ready"
	StatusDegraded = "degraded"
	StatusNotReady = "not_ready"
)

// Pipeline 偵測管線的元件資訊
type Pipeline interface {
	DetectorName() string
	OCRName() string
}

// LLM 語言模型可用性
type LLM interface {
	Available(ctx context.Context) bool
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status     string                 `json:"status"`
	Message    string                 `json:"message"`
	Timestamp  time.Time              `json:"timestamp"`
	Version    string                 `json:"version"`
	Uptime     string                 `json:"uptime"`
	Components Components             `json:"components"`
	Runtime    map[string]interface{} `json:"runtime"`
	Queue      queue.Status           `json:"queue"`
}

// Components 各元件狀態
type Components struct {
	Detector      string `json:"detector"`
	OCR           string `json:"ocr"`
	LLMProvider   string `json:"llm_provider"`
	LLMAvailable  bool   `json:"llm_available"`
	CatalogSource string `json:"catalog_source"`
	CatalogSize   int    `json:"catalog_size"`
}

// Handler 健康檢查與服務資訊
type Handler struct {
	cfg      *config.Config
	store    *recipe.Store
	pipeline Pipeline
	llm      LLM
	queue    *queue.Manager
	started  time.Time
}

// NewHandler 創建健康檢查處理器，llm 與 q 可為 nil
func NewHandler(cfg *config.Config, store *recipe.Store, pipeline Pipeline, llm LLM, q *queue.Manager) *Handler {
	return &Handler{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline,
		llm:      llm,
		queue:    q,
		started:  time.Now(),
	}
}

// RegisterRoutes 註冊根路徑、探針與資訊路由
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)
	r.GET("/info", h.Info)
}

func (h *Handler) components(ctx context.Context) Components {
	c := Components{
		Detector:      h.pipeline.DetectorName(),
		OCR:           h.pipeline.OCRName(),
		LLMProvider:   h.cfg.LLM.Provider,
		CatalogSource: h.store.Source(),
		CatalogSize:   h.store.Len(),
	}
	if h.llm != nil {
		c.LLMAvailable = h.llm.Available(ctx)
	}
	return c
}

// Root 歡迎訊息與主要連結
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to " + h.cfg.App.Name,
		"version": h.cfg.App.Version,
		"health":  "/health",
		"info":    "/info",
		"metrics": "/metrics",
		"api":     "/api/v1",
	})
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:     "healthy",
		Message:    h.cfg.App.Name + " is running",
		Timestamp:  time.Now(),
		Version:    h.cfg.App.Version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Components: h.components(c.Request.Context()),
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Queue: h.queue.GetQueueStatus(),
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查：目錄為空時不就緒，未設定偵測器時降級
func (h *Handler) ReadinessCheck(c *gin.Context) {
	checks := gin.H{
		"catalog":  h.store.Len() > 0,
		"detector": h.pipeline.DetectorName() != "",
		"ocr":      h.pipeline.OCRName() != "",
	}

	status, code := StatusReady, http.StatusOK
	switch {
	case h.store.Len() == 0:
		status, code = StatusNotReady, http.StatusServiceUnavailable
	case h.pipeline.DetectorName() == "":
		status = StatusDegraded
	}
	if code != http.StatusOK {
		common.LogWarn("服務尚未就緒", zap.Any("checks", checks))
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Info API 資訊與食譜目錄統計
func (h *Handler) Info(c *gin.Context) {
	ingredients := h.store.AllIngredients()

	c.JSON(http.StatusOK, gin.H{
		"status":      common.StatusSuccess,
		"api_name":    h.cfg.App.Name,
		"version":     h.cfg.App.Version,
		"description": "Food detection and recipe recommendation API",
		"endpoints": gin.H{
			"detect":    "/api/v1/fridge/detect (POST) - Detect ingredients in image",
			"analyze":   "/api/v1/fridge/analyze (POST) - Detect ingredients and recommend recipes",
			"recommend": "/api/v1/recipes/recommend (GET, POST) - Get recipe recommendations",
			"refine":    "/api/v1/recipes/refine (POST) - Ask a cooking question about a recipe",
			"search":    "/api/v1/recipes/search (GET) - Search recipes",
			"list":      "/api/v1/recipes (GET) - List recipes",
			"get":       "/api/v1/recipes/{id} (GET) - Get recipe by ID",
			"health":    "/health (GET) - Health check",
			"metrics":   "/metrics (GET) - Prometheus metrics",
		},
		"database": gin.H{
			"source":                   h.store.Source(),
			"total_recipes":            h.store.Len(),
			"total_unique_ingredients": len(ingredients),
			"available_ingredients":    ingredients,
		},
		"detector": gin.H{
			"backend": h.pipeline.DetectorName(),
			"classes": h.cfg.Detector.Classes,
		},
		"features": gin.H{
			"ocr":                    h.cfg.Features.EnableOCR,
			"quantity_estimation":    h.cfg.Features.EnableQuantityEstimation,
			"recipe_recommendations": h.cfg.Features.EnableRecipeRecommendations,
		},
		"queue":    h.queue.GetQueueStatus(),
	})
}
