// Package fridge 冰箱照片的處理管線：圖片前處理、物件偵測、份量估計、OCR 與合併
package fridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fridge-vision/internal/core/image"
	"fridge-vision/internal/core/quantity"
	"fridge-vision/internal/core/queue"
	"fridge-vision/internal/core/recipe"
	"fridge-vision/internal/core/vision"
	"fridge-vision/internal/observability/metrics"
	"fridge-vision/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 管線階段名稱
const (
	StagePrepare   = "prepare"
	StageDetect    = "detect"
	StageOCR       = "ocr"
	StageRecommend = "recommend"
)

// Options 單次分析的選項
type Options struct {
	EnableOCR           bool
	ConfidenceThreshold float64
}

// Analysis 單張照片的分析結果
type Analysis struct {
	Detector         string                      `json:"detector"`
	Image            *image.Prepared             `json:"image"`
	Detections       []vision.Detection          `json:"detections"`
	Quantities       *quantity.BatchResult       `json:"quantities"`
	Ingredients      []quantity.MergedIngredient `json:"ingredients"`
	IngredientNames  []string                    `json:"ingredient_names"`
	OCR              *vision.OCRResult           `json:"ocr,omitempty"`
	ExpiryDate       string                      `json:"expiry_date,omitempty"`
	TextIngredients  []string                    `json:"text_ingredients,omitempty"`
	ProcessingTimeMs int64                       `json:"processing_time_ms"`
}

// Recommendation 分析加上食譜推薦
type Recommendation struct {
	*Analysis
	Recommendations recipe.Result `json:"recommendations"`
}

// Deps 服務依賴；Detector、OCR、Queue、Metrics 可為 nil
type Deps struct {
	Images             *image.Service
	Detector           vision.Detector
	OCR                vision.OCREngine
	Recommender        *recipe.Recommender
	Queue              *queue.Manager
	Metrics            *metrics.Metrics
	EstimateQuantities bool
}

// Service 處理管線
type Service struct {
	images             *image.Service
	detector           vision.Detector
	ocr                vision.OCREngine
	recommender        *recipe.Recommender
	queue              *queue.Manager
	metrics            *metrics.Metrics
	estimateQuantities bool
}

// NewService 創建處理管線
func NewService(d Deps) *Service {
	return &Service{
		images:             d.Images,
		detector:           d.Detector,
		ocr:                d.OCR,
		recommender:        d.Recommender,
		queue:              d.Queue,
		metrics:            d.Metrics,
		estimateQuantities: d.EstimateQuantities,
	}
}

// DetectorName 偵測器名稱，未設定時為空字串
func (s *Service) DetectorName() string {
	if s.detector == nil {
		return ""
	}
	return s.detector.Name()
}

// OCRName OCR 引擎名稱，未設定時為空字串
func (s *Service) OCRName() string {
	if s.ocr == nil {
		return ""
	}
	return s.ocr.Name()
}

// Analyze 執行整條管線
func (s *Service) Analyze(ctx context.Context, data []byte, opts Options) (*Analysis, error) {
	start := time.Now()
	if s.detector == nil {
		return nil, common.ErrDetectorUnavailable
	}

	prepared, err := s.prepare(data)
	if err != nil {
		return nil, err
	}

	var (
		detected *vision.DetectionResult
		ocr      *vision.OCRResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detected, err = s.detect(gctx, prepared.Data)
		return err
	})
	if opts.EnableOCR && s.ocr != nil {
		g.Go(func() error {
			ocr = s.extractText(gctx, prepared.Data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := make([]vision.Detection, 0, len(detected.Detections))
	classes := make([]string, 0, len(detected.Detections))
	for _, det := range detected.Detections {
		if det.Confidence < opts.ConfidenceThreshold {
			continue
		}
		kept = append(kept, det)
		classes = append(classes, det.ClassName)
	}
	s.metrics.ObserveDetections(classes)

	width, height := detected.ImageWidth, detected.ImageHeight
	if width <= 0 || height <= 0 {
		width, height = prepared.Width, prepared.Height
	}
	if width <= 0 || height <= 0 {
		return nil, common.ErrDetectionFailed.Wrap(fmt.Errorf("invalid image dimensions %dx%d", width, height))
	}

	batch := quantity.NewEstimator(width, height).EstimateBatch(kept)
	if !s.estimateQuantities {
		blankQuantities(batch)
	}
	merged := quantity.Merge(batch, ocr)

	out := &Analysis{
		Detector:        s.detector.Name(),
		Image:           prepared,
		Detections:      kept,
		Quantities:      batch,
		Ingredients:     merged,
		IngredientNames: quantity.Names(merged),
		OCR:             ocr,
	}
	if ocr.Succeeded() && ocr.FullText != "" {
		out.ExpiryDate, _ = vision.DetectExpiryDate(ocr.FullText)
		out.TextIngredients = vision.ParseIngredientsFromText(ocr.FullText)
	}
	out.ProcessingTimeMs = time.Since(start).Milliseconds()

	common.LogInfo("冰箱照片分析完成",
		zap.String("detector", out.Detector),
		zap.Int("detections", len(kept)),
		zap.Int("ingredients", len(merged)),
		zap.Bool("ocr", ocr != nil),
		zap.Int64("processing_time_ms", out.ProcessingTimeMs),
	)
	return out, nil
}

// AnalyzeAndRecommend 分析後以合併出的食材推薦食譜
func (s *Service) AnalyzeAndRecommend(ctx context.Context, data []byte, opts Options, req recipe.Request) (*Recommendation, error) {
	analysis, err := s.Analyze(ctx, data, opts)
	if err != nil {
		return nil, err
	}

	req.Ingredients = analysis.IngredientNames
	result := s.Recommend(ctx, req)
	return &Recommendation{Analysis: analysis, Recommendations: result}, nil
}

// Recommend 執行推薦並記錄指標
func (s *Service) Recommend(ctx context.Context, req recipe.Request) recipe.Result {
	start := time.Now()
	var result recipe.Result
	if req.PreferLLM {
		// LLM 呼叫共用推論名額
		err := s.queue.Do(ctx, StageRecommend, func(ctx context.Context) error {
			result = s.recommender.Recommend(ctx, req)
			return nil
		})
		if err != nil {
			common.LogWarn("推論隊列忙碌，改用關鍵字比對", zap.Error(err))
			req.PreferLLM = false
			result = s.recommender.Recommend(ctx, req)
			result.Fallback = true
		}
	} else {
		result = s.recommender.Recommend(ctx, req)
	}
	s.metrics.ObserveStage(StageRecommend, time.Since(start))
	s.metrics.ObserveRecommendation(string(result.Strategy), result.Fallback)
	return result
}

func (s *Service) prepare(data []byte) (*image.Prepared, error) {
	start := time.Now()
	prepared, err := s.images.Prepare(data)
	s.metrics.ObserveStage(StagePrepare, time.Since(start))
	if err != nil {
		s.metrics.IncStageError(StagePrepare)
		return nil, imageError(err)
	}
	return prepared, nil
}

func imageError(err error) error {
	switch {
	case errors.Is(err, image.ErrImageTooLarge):
		return common.ErrInvalidImageSize.Wrap(err)
	case errors.Is(err, image.ErrUnsupportedFormat):
		return common.ErrInvalidImageType.Wrap(err)
	default:
		return common.ErrInvalidImageFormat.Wrap(err)
	}
}

func (s *Service) detect(ctx context.Context, data []byte) (*vision.DetectionResult, error) {
	start := time.Now()
	var result *vision.DetectionResult
	err := s.queue.Do(ctx, StageDetect, func(ctx context.Context) error {
		var err error
		result, err = s.detector.Detect(ctx, data)
		return err
	})
	s.metrics.ObserveStage(StageDetect, time.Since(start))
	if err != nil {
		s.metrics.IncStageError(StageDetect)
		common.LogError("物件偵測失敗",
			zap.String("detector", s.detector.Name()),
			zap.Error(err),
		)
		switch {
		case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrWaitTimeout):
			return nil, common.ErrTooManyRequests.Wrap(err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, common.ErrGatewayTimeout.Wrap(err)
		}
		return nil, common.ErrDetectionFailed.Wrap(err)
	}
	if result == nil {
		result = &vision.DetectionResult{}
	}
	return result, nil
}

// extractText OCR 失敗不影響整體結果，只記錄為 error 狀態
func (s *Service) extractText(ctx context.Context, data []byte) *vision.OCRResult {
	start := time.Now()
	var result *vision.OCRResult
	err := s.queue.Do(ctx, StageOCR, func(ctx context.Context) error {
		var err error
		result, err = s.ocr.ExtractText(ctx, data)
		return err
	})
	s.metrics.ObserveStage(StageOCR, time.Since(start))
	if err != nil {
		s.metrics.IncStageError(StageOCR)
		common.LogWarn("OCR 失敗", zap.String("engine", s.ocr.Name()), zap.Error(err))
		return vision.FailedOCR(err)
	}
	if result == nil {
		return vision.FailedOCR(errors.New("ocr returned no result"))
	}
	return result
}

func blankQuantities(batch *quantity.BatchResult) {
	for i := range batch.Ingredients {
		batch.Ingredients[i].QuantityEstimate = ""
		batch.Ingredients[i].QuantityValue = 0
	}
}
