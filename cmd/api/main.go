package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fridge-vision/internal/api"
	"fridge-vision/internal/core/ai/cache"
	"fridge-vision/internal/core/ai/ollama"
	"fridge-vision/internal/core/ai/openrouter"
	"fridge-vision/internal/core/ai/provider"
	"fridge-vision/internal/core/ai/service"
	"fridge-vision/internal/core/fridge"
	"fridge-vision/internal/core/image"
	"fridge-vision/internal/core/queue"
	"fridge-vision/internal/core/recipe"
	"fridge-vision/internal/core/vision"
	"fridge-vision/internal/infrastructure/config"
	"fridge-vision/internal/observability/metrics"
	"fridge-vision/internal/pkg/common"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"go.uber.org/zap"
)

func main() {
	// 載入設定（含選用的 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("detector_backend", cfg.Detector.Backend),
		zap.String("ocr_backend", cfg.OCR.Backend),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("openrouter_api_key", config.MaskAPIKey(cfg.LLM.OpenRouter.APIKey)),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	ctx := context.Background()

	m, err := metrics.New()
	if err != nil {
		common.LogFatal("Failed to initialize metrics", zap.Error(err))
	}

	detector, ocr, err := newVision(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize vision backends", zap.Error(err))
	}

	aiSvc, err := newAIService(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize AI service", zap.Error(err))
	}
	defer aiSvc.Close()

	var generator *recipe.LLMGenerator
	if aiSvc != nil {
		generator = recipe.NewLLMGenerator(aiSvc, cfg.LLM.NumRecipes)
	}

	store := recipe.LoadStore(cfg.Recipe.File)
	images := image.NewService(cfg.Image)
	q := queue.NewManager(cfg.Queue)
	pipeline := fridge.NewService(fridge.Deps{
		Images:             images,
		Detector:           detector,
		OCR:                ocr,
		Recommender:        recipe.NewRecommender(recipe.NewMatcher(store), generator),
		Queue:              q,
		Metrics:            m,
		EstimateQuantities: cfg.Features.EnableQuantityEstimation,
	})

	router := api.SetupRouter(api.Deps{
		Config:    cfg,
		Store:     store,
		Fridge:    pipeline,
		Images:    images,
		Generator: generator,
		Queue:     q,
		Metrics:   m,
	})
	srv := api.NewServer(cfg, router)

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}

// newVision 依設定建立偵測器與 OCR 引擎，backend 為 none 時回傳 nil
func newVision(ctx context.Context, cfg *config.Config) (vision.Detector, vision.OCREngine, error) {
	var rekClient *rekognition.Client
	rekognitionClient := func() (*rekognition.Client, error) {
		if rekClient != nil {
			return rekClient, nil
		}
		c, err := vision.NewRekognitionClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		rekClient = c
		return c, nil
	}

	var detector vision.Detector
	switch cfg.Detector.Backend {
	case config.BackendHTTP:
		detector = vision.NewHTTPDetector(vision.HTTPDetectorConfig{
			Endpoint:      cfg.Detector.Endpoint,
			Timeout:       cfg.Detector.Timeout,
			ConfThreshold: cfg.Detector.ConfThreshold,
			IOUThreshold:  cfg.Detector.IOUThreshold,
			ImageSize:     cfg.Image.MaxDimension,
		})
	case config.BackendRekognition:
		c, err := rekognitionClient()
		if err != nil {
			return nil, nil, err
		}
		detector = vision.NewRekognitionDetector(c, cfg.Detector.ConfThreshold, cfg.Detector.Classes)
	default:
		common.LogWarn("未設定物件偵測後端，偵測端點將回傳 503")
	}

	var ocr vision.OCREngine
	switch cfg.OCR.Backend {
	case config.BackendHTTP:
		ocr = vision.NewHTTPOCR(vision.HTTPOCRConfig{
			Endpoint:            cfg.OCR.Endpoint,
			Timeout:             cfg.OCR.Timeout,
			Languages:           cfg.OCR.Languages,
			ConfidenceThreshold: cfg.OCR.ConfidenceThreshold,
		})
	case config.BackendRekognition:
		c, err := rekognitionClient()
		if err != nil {
			return nil, nil, err
		}
		ocr = vision.NewRekognitionOCR(c, cfg.OCR.ConfidenceThreshold)
	}

	return detector, ocr, nil
}

// newAIService 建立 LLM 供應商與回應快取；provider 為 none 時回傳 nil
func newAIService(ctx context.Context, cfg *config.Config) (*service.Service, error) {
	var p provider.Provider
	switch cfg.LLM.Provider {
	case config.ProviderOllama:
		p = ollama.NewClient(provider.Config{
			BaseURL: cfg.LLM.Ollama.Host,
			Model:   cfg.LLM.Ollama.Model,
			Timeout: cfg.LLM.Timeout,
		})
	case config.ProviderOpenRouter:
		p = openrouter.NewClient(provider.Config{
			BaseURL:   cfg.LLM.OpenRouter.BaseURL,
			APIKey:    cfg.LLM.OpenRouter.APIKey,
			Model:     cfg.LLM.OpenRouter.Model,
			MaxTokens: cfg.LLM.OpenRouter.MaxTokens,
			Timeout:   cfg.LLM.Timeout,
		})
	default:
		common.LogInfo("未設定 LLM 供應商，只使用關鍵字比對")
		return nil, nil
	}

	store, err := cache.NewStore(ctx, cfg.Cache)
	if err != nil {
		// 快取失敗不影響主要功能
		common.LogWarn("快取初始化失敗，停用 LLM 快取", zap.Error(err))
	}

	common.LogInfo("AI 服務已初始化",
		zap.String("provider", p.Name()),
		zap.String("model", p.GetModel()),
		zap.Bool("cache", store != nil),
	)
	return service.NewService(p, store), nil
}
