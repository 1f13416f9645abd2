package api

import (
	"net/http"
	"time"

	"fridge-vision/internal/api/handlers"
	fridgeHandler "fridge-vision/internal/api/handlers/fridge"
	"fridge-vision/internal/api/handlers/health"
	recipeHandler "fridge-vision/internal/api/handlers/recipe"
	"fridge-vision/internal/api/middleware"
	"fridge-vision/internal/core/fridge"
	"fridge-vision/internal/core/image"
	"fridge-vision/internal/core/queue"
	"fridge-vision/internal/core/recipe"
	"fridge-vision/internal/infrastructure/config"
	"fridge-vision/internal/observability/metrics"
	"fridge-vision/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipart 邊界與 base64 膨脹的額外空間
const bodyOverhead = 1 << 20

// Deps 路由需要的服務；Generator、Queue、Metrics 可為 nil
type Deps struct {
	Config    *config.Config
	Store     *recipe.Store
	Fridge    *fridge.Service
	Images    *image.Service
	Generator *recipe.LLMGenerator
	Queue     *queue.Manager
	Metrics   *metrics.Metrics
}

// maxBodySize base64 編碼後的圖片約為原始大小的 4/3
func maxBodySize(imageLimit int64) int64 {
	return imageLimit*4/3 + bodyOverhead
}

// SetupRouter 設置路由
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger(d.Metrics))

	// CORS 設置
	corsCfg := cors.Config{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 || (len(corsCfg.AllowOrigins) == 1 && corsCfg.AllowOrigins[0] == "*") {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowCredentials = true
	}
	router.Use(cors.New(corsCfg))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize(cfg.Image.MaxSizeBytes)))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	router.NoRoute(func(c *gin.Context) { handlers.Error(c, common.ErrNotFound) })
	router.NoMethod(func(c *gin.Context) { handlers.Error(c, common.ErrMethodNotAllowed) })

	// 健康檢查與服務資訊
	health.NewHandler(cfg, d.Store, d.Fridge, d.Generator, d.Queue).RegisterRoutes(router)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.NewClientLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window).Middleware())
	}
	if cfg.DedupWindow > 0 {
		api.Use(middleware.NewDeduplicator(cfg.DedupWindow).Middleware())
	}

	fridgeHandler.NewHandler(d.Fridge, d.Images, cfg).RegisterRoutes(api)
	recipeHandler.NewHandler(d.Store, d.Fridge, d.Generator, cfg.Recipe,
		cfg.Features.EnableRecipeRecommendations).RegisterRoutes(api)

	d.Metrics.SetCatalogSize(d.Store.Len())

	common.LogInfo("Router setup completed successfully",
		zap.String("detector", d.Fridge.DetectorName()),
		zap.String("ocr", d.Fridge.OCRName()),
		zap.Int("recipes", d.Store.Len()),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", maxBodySize(cfg.Image.MaxSizeBytes)),
	)

	return router
}

// NewServer 以設定建立 HTTP 服務器
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
