package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"fridge-vision/internal/pkg/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"go.uber.org/zap"
)

// RekognitionAPI 用到的 Rekognition 方法
type RekognitionAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// NewRekognitionClient 以預設憑證鏈建立 Rekognition 客戶端
func NewRekognitionClient(ctx context.Context, region string) (*rekognition.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return rekognition.NewFromConfig(cfg), nil
}

// RekognitionDetector 以 DetectLabels 的實例框當作物件偵測
type RekognitionDetector struct {
	client        RekognitionAPI
	minConfidence float64
	vocabulary    map[string]bool
}

// NewRekognitionDetector classes 為空時不過濾標籤
func NewRekognitionDetector(client RekognitionAPI, minConfidence float64, classes []string) *RekognitionDetector {
	vocab := make(map[string]bool, len(classes))
	for _, c := range classes {
		vocab[common.NormalizeName(c)] = true
	}
	return &RekognitionDetector{client: client, minConfidence: minConfidence, vocabulary: vocab}
}

// Name 偵測器名稱
func (d *RekognitionDetector) Name() string { return "rekognition" }

// Detect 呼叫 DetectLabels 並把比例座標換成像素
func (d *RekognitionDetector) Detect(ctx context.Context, img []byte) (*DetectionResult, error) {
	if len(img) == 0 {
		return nil, ErrEmptyImage
	}
	width, height, err := imageSize(img)
	if err != nil {
		return nil, err
	}

	out, err := d.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: img},
		MaxLabels:     aws.Int32(50),
		MinConfidence: aws.Float32(float32(d.minConfidence * 100)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: rekognition detect labels: %v", ErrBackend, err)
	}

	result := &DetectionResult{ImageWidth: width, ImageHeight: height, Detections: []Detection{}}
	for _, label := range out.Labels {
		name := common.NormalizeName(aws.ToString(label.Name))
		if len(d.vocabulary) > 0 && !d.vocabulary[name] {
			continue
		}
		for _, inst := range label.Instances {
			if inst.BoundingBox == nil {
				continue
			}
			conf := float64(aws.ToFloat32(inst.Confidence)) / 100
			if conf < d.minConfidence {
				continue
			}
			result.Detections = append(result.Detections, Detection{
				ClassName:  name,
				Confidence: conf,
				BBox:       toPixels(inst.BoundingBox, width, height),
			})
		}
	}

	common.LogDebug("偵測完成",
		zap.String("backend", d.Name()),
		zap.Int("labels", len(out.Labels)),
		zap.Int("detections", len(result.Detections)),
	)
	return result, nil
}

// RekognitionOCR 以 DetectText 的 LINE 結果當作 OCR
type RekognitionOCR struct {
	client    RekognitionAPI
	threshold float64
}

// NewRekognitionOCR 創建 Rekognition OCR 引擎
func NewRekognitionOCR(client RekognitionAPI, threshold float64) *RekognitionOCR {
	return &RekognitionOCR{client: client, threshold: threshold}
}

// Name 引擎名稱
func (o *RekognitionOCR) Name() string { return "rekognition" }

// ExtractText 取得影像中的文字行
func (o *RekognitionOCR) ExtractText(ctx context.Context, img []byte) (*OCRResult, error) {
	if len(img) == 0 {
		return nil, ErrEmptyImage
	}
	width, height, err := imageSize(img)
	if err != nil {
		return nil, err
	}

	out, err := o.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: img},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: rekognition detect text: %v", ErrBackend, err)
	}

	spans := make([]TextSpan, 0, len(out.TextDetections))
	for _, td := range out.TextDetections {
		if td.Type != types.TextTypesLine {
			continue
		}
		span := TextSpan{
			Text:       aws.ToString(td.DetectedText),
			Confidence: float64(aws.ToFloat32(td.Confidence)) / 100,
		}
		if td.Geometry != nil && td.Geometry.BoundingBox != nil {
			box := toPixels(td.Geometry.BoundingBox, width, height)
			span.BBox = TextBox{X: box[0], Y: box[1], Width: box.Width(), Height: box.Height()}
		}
		spans = append(spans, span)
	}
	return NewOCRResult(spans, o.threshold), nil
}

func toPixels(b *types.BoundingBox, width, height int) BoundingBox {
	left := float64(aws.ToFloat32(b.Left)) * float64(width)
	top := float64(aws.ToFloat32(b.Top)) * float64(height)
	w := float64(aws.ToFloat32(b.Width)) * float64(width)
	h := float64(aws.ToFloat32(b.Height)) * float64(height)
	return BoundingBox{left, top, left + w, top + h}
}

func imageSize(img []byte) (int, int, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid %s image dimensions %dx%d", strings.ToLower(format), cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}
