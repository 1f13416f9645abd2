package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"strings"
	"time"

	"fridge-vision/internal/infrastructure/config"

	"github.com/go-resty/resty/v2"
	xdraw "golang.org/x/image/draw"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	_ "golang.org/x/image/bmp"  // 支援 BMP
	_ "golang.org/x/image/webp" // 支援 WebP
)

var (
	ErrEmptyImage        = errors.New("image is empty")
	ErrImageTooLarge     = errors.New("image exceeds size limit")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrDecode            = errors.New("failed to decode image")
	ErrInvalidReference  = errors.New("invalid image reference")
)

// Prepared 送往偵測器前的圖片
type Prepared struct {
	Data           []byte `json:"-"`
	Format         string `json:"format"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OriginalWidth  int    `json:"original_width"`
	OriginalHeight int    `json:"original_height"`
	Resized        bool   `json:"resized"`
}

// Service 圖片處理服務
type Service struct {
	maxSizeBytes int64
	maxDimension int
	quality      int
	httpClient   *resty.Client
}

// NewService 創建新的圖片處理服務
func NewService(cfg config.ImageConfig) *Service {
	quality := cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &Service{
		maxSizeBytes: cfg.MaxSizeBytes,
		maxDimension: cfg.MaxDimension,
		quality:      quality,
		httpClient:   resty.New().SetTimeout(30 * time.Second),
	}
}

// MaxSizeBytes 上傳大小上限
func (s *Service) MaxSizeBytes() int64 { return s.maxSizeBytes }

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
		"bmp":  true,
	}
	return supportedFormats[format]
}

func (s *Service) checkSize(n int) error {
	if n == 0 {
		return ErrEmptyImage
	}
	if s.maxSizeBytes > 0 && int64(n) > s.maxSizeBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, n, s.maxSizeBytes)
	}
	return nil
}

// Prepare 驗證並解碼圖片，長邊超過上限時等比例縮小，最後輸出 JPEG
func (s *Service) Prepare(data []byte) (*Prepared, error) {
	if err := s.checkSize(len(data)); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !isSupportedFormat(format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	b := img.Bounds()
	out := &Prepared{
		Format:         format,
		Width:          b.Dx(),
		Height:         b.Dy(),
		OriginalWidth:  b.Dx(),
		OriginalHeight: b.Dy(),
	}

	if w, h := fitWithin(b.Dx(), b.Dy(), s.maxDimension); w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
		img = dst
		out.Width, out.Height, out.Resized = w, h, true
	}

	// 未縮放的 JPEG 直接沿用原始資料
	if format == "jpeg" && !out.Resized {
		out.Data = data
		return out, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}
	out.Data = buf.Bytes()
	return out, nil
}

// fitWithin 等比例縮放使長邊不超過 limit，limit <= 0 時不縮放
func fitWithin(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, atLeastOne(h * limit / w)
	}
	return atLeastOne(w * limit / h), limit
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Load 取得 data URI、純 base64 或 http(s) URL 指向的圖片
func (s *Service) Load(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrEmptyImage
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		resp, err := s.httpClient.R().SetContext(ctx).Get(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to download image: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("failed to download image: status code %d", resp.StatusCode())
		}
		data := resp.Body()
		if err := s.checkSize(len(data)); err != nil {
			return nil, err
		}
		return data, nil
	}

	data, err := DecodeDataURI(ref)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodeDataURI 解析 data:image/...;base64, 開頭的字串，也接受純 base64
func DecodeDataURI(ref string) ([]byte, error) {
	payload := ref
	if strings.HasPrefix(ref, "data:") {
		parts := strings.SplitN(ref, ",", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[0], "data:image/") || !strings.HasSuffix(parts[0], ";base64") {
			return nil, fmt.Errorf("%w: malformed data uri", ErrInvalidReference)
		}
		payload = parts[1]
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return data, nil
}
