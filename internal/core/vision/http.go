package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"fridge-vision/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HTTPDetectorConfig 遠端推論服務設定
type HTTPDetectorConfig struct {
	Endpoint      string
	Timeout       time.Duration
	ConfThreshold float64
	IOUThreshold  float64
	ImageSize     int
}

// HTTPDetector 透過 HTTP 呼叫遠端 YOLO 推論服務
type HTTPDetector struct {
	client *resty.Client
	cfg    HTTPDetectorConfig
}

type detectRequest struct {
	Image     string  `json:"image"`
	Conf      float64 `json:"conf"`
	IOU       float64 `json:"iou"`
	ImageSize int     `json:"imgsz,omitempty"`
}

type detectResponse struct {
	Detections []struct {
		ClassName  string     `json:"class_name"`
		Confidence float64    `json:"confidence"`
		BBox       [4]float64 `json:"bbox"`
	} `json:"detections"`
	ImageWidth  int `json:"image_width"`
	ImageHeight int `json:"image_height"`
}

// NewHTTPDetector 創建 HTTP 偵測器
func NewHTTPDetector(cfg HTTPDetectorConfig) *HTTPDetector {
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &HTTPDetector{client: client, cfg: cfg}
}

// Name 偵測器名稱
func (d *HTTPDetector) Name() string { return "http" }

// Detect 送出影像並取得偵測框
func (d *HTTPDetector) Detect(ctx context.Context, image []byte) (*DetectionResult, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	var out detectResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(detectRequest{
			Image:     base64.StdEncoding.EncodeToString(image),
			Conf:      d.cfg.ConfThreshold,
			IOU:       d.cfg.IOUThreshold,
			ImageSize: d.cfg.ImageSize,
		}).
		SetResult(&out).
		Post("/detect")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to detector: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: detector returned status %d: %s", ErrBackend, resp.StatusCode(), truncate(resp.String(), 200))
	}

	result := &DetectionResult{
		Detections:  make([]Detection, 0, len(out.Detections)),
		ImageWidth:  out.ImageWidth,
		ImageHeight: out.ImageHeight,
	}
	for _, det := range out.Detections {
		result.Detections = append(result.Detections, Detection{
			ClassName:  det.ClassName,
			Confidence: det.Confidence,
			BBox:       BoundingBox(det.BBox),
		})
	}

	common.LogDebug("偵測完成",
		zap.String("backend", d.Name()),
		zap.Int("detections", len(result.Detections)),
	)
	return result, nil
}

// HTTPOCRConfig 遠端 OCR 服務設定
type HTTPOCRConfig struct {
	Endpoint            string
	Timeout             time.Duration
	Languages           []string
	ConfidenceThreshold float64
}

// HTTPOCR 透過 HTTP 呼叫遠端 OCR 服務
type HTTPOCR struct {
	client *resty.Client
	cfg    HTTPOCRConfig
}

type ocrRequest struct {
	Image     string   `json:"image"`
	Languages []string `json:"languages"`
}

type ocrResponse struct {
	Texts []TextSpan `json:"texts"`
}

// NewHTTPOCR 創建 HTTP OCR 引擎
func NewHTTPOCR(cfg HTTPOCRConfig) *HTTPOCR {
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &HTTPOCR{client: client, cfg: cfg}
}

// Name 引擎名稱
func (o *HTTPOCR) Name() string { return "http" }

// ExtractText 取得影像中的文字，門檻以下的片段會被丟棄
func (o *HTTPOCR) ExtractText(ctx context.Context, image []byte) (*OCRResult, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	var out ocrResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(ocrRequest{
			Image:     base64.StdEncoding.EncodeToString(image),
			Languages: o.cfg.Languages,
		}).
		SetResult(&out).
		Post("/ocr")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to ocr service: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: ocr service returned status %d: %s", ErrBackend, resp.StatusCode(), truncate(resp.String(), 200))
	}

	return NewOCRResult(out.Texts, o.cfg.ConfidenceThreshold), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
