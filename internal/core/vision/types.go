package vision

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyImage 圖片內容為空
	ErrEmptyImage = errors.New("vision: empty image")
	// ErrBackend 上游偵測服務回應異常
	ErrBackend = errors.New("vision: backend error")
)

// BoundingBox 像素座標的偵測框 [x1, y1, x2, y2]
type BoundingBox [4]float64

// Width 框寬
func (b BoundingBox) Width() float64 { return b[2] - b[0] }

// Height 框高
func (b BoundingBox) Height() float64 { return b[3] - b[1] }

// Area 框面積
func (b BoundingBox) Area() float64 { return b.Width() * b.Height() }

// Detection 單一物件偵測結果
type Detection struct {
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// Area 偵測框面積
func (d Detection) Area() float64 { return d.BBox.Area() }

// DetectionResult 偵測器輸出，寬高為實際推論所用的影像尺寸
type DetectionResult struct {
	Detections  []Detection `json:"detections"`
	ImageWidth  int         `json:"image_width"`
	ImageHeight int         `json:"image_height"`
}

// Detector 物件偵測器
type Detector interface {
	Detect(ctx context.Context, image []byte) (*DetectionResult, error)
	Name() string
}

// OCR 狀態
const (
	OCRStatusSuccess = "success"
	OCRStatusError   = "error"
)

// TextBox 文字框（像素）
type TextBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextSpan 單段辨識文字
type TextSpan struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	BBox       TextBox `json:"bbox"`
}

// OCRResult OCR 結果
type OCRResult struct {
	Status   string     `json:"status"`
	Texts    []TextSpan `json:"texts"`
	FullText string     `json:"full_text"`
	NumTexts int        `json:"num_texts"`
	Error    string     `json:"error,omitempty"`
}

// Succeeded 是否成功取得文字
func (r *OCRResult) Succeeded() bool {
	return r != nil && r.Status == OCRStatusSuccess
}

// OCREngine 文字辨識引擎
type OCREngine interface {
	ExtractText(ctx context.Context, image []byte) (*OCRResult, error)
	Name() string
}

// NewOCRResult 依信心門檻過濾文字並組出 full_text
func NewOCRResult(spans []TextSpan, threshold float64) *OCRResult {
	kept := make([]TextSpan, 0, len(spans))
	parts := make([]string, 0, len(spans))
	for _, s := range spans {
		if s.Confidence < threshold {
			continue
		}
		s.Text = strings.TrimSpace(s.Text)
		kept = append(kept, s)
		parts = append(parts, s.Text)
	}
	return &OCRResult{
		Status:   OCRStatusSuccess,
		Texts:    kept,
		FullText: strings.Join(parts, " "),
		NumTexts: len(kept),
	}
}

// FailedOCR 建立失敗的 OCR 結果
func FailedOCR(err error) *OCRResult {
	r := &OCRResult{Status: OCRStatusError, Texts: []TextSpan{}}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
