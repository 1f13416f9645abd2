package fridge

import (
	"bytes"
	"context"
	"encoding/base64"
	stdimage "image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fridge-vision/internal/core/fridge"
	"fridge-vision/internal/core/image"
	"fridge-vision/internal/core/queue"
	"fridge-vision/internal/core/recipe"
	"fridge-vision/internal/core/vision"
	"fridge-vision/internal/infrastructure/config"
	"fridge-vision/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubDetector struct {
	result *vision.DetectionResult
}

func (s *stubDetector) Name() string { return "stub" }

func (s *stubDetector) Detect(context.Context, []byte) (*vision.DetectionResult, error) {
	return s.result, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Detector: config.DetectorConfig{ConfThreshold: 0.5},
		Recipe:   config.RecipeConfig{DefaultTopK: 5, MaxTopK: 20, MinMatch: 1},
		Image:    config.ImageConfig{MaxSizeBytes: 1 << 20, MaxDimension: 640, JPEGQuality: 90},
		Features: config.FeatureConfig{
			EnableQuantityEstimation:    true,
			EnableRecipeRecommendations: true,
		},
	}
}

func newRouter(cfg *config.Config, det vision.Detector) *gin.Engine {
	images := image.NewService(cfg.Image)
	svc := fridge.NewService(fridge.Deps{
		Images:             images,
		Detector:           det,
		Recommender:        recipe.NewRecommender(recipe.NewMatcher(recipe.NewStore(recipe.DefaultRecipes())), nil),
		Queue:              queue.NewManager(config.QueueConfig{MaxConcurrent: 1, MaxWaiting: 1}),
		EstimateQuantities: cfg.Features.EnableQuantityEstimation,
	})

	r := gin.New()
	NewHandler(svc, images, cfg).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func breadDetector() *stubDetector {
	return &stubDetector{result: &vision.DetectionResult{
		ImageWidth:  64,
		ImageHeight: 64,
		Detections: []vision.Detection{
			{ClassName: "bread", Confidence: 0.9, BBox: vision.BoundingBox{0, 0, 32, 32}},
			{ClassName: "garlic", Confidence: 0.7, BBox: vision.BoundingBox{40, 40, 44, 44}},
			{ClassName: "butter", Confidence: 0.6, BBox: vision.BoundingBox{10, 40, 20, 50}},
			{ClassName: "onion", Confidence: 0.3, BBox: vision.BoundingBox{0, 0, 2, 2}},
		},
	}}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, 64, 64))))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "fridge.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type detectBody struct {
	Message             string           `json:"message"`
	Detector            string           `json:"detector"`
	DetectedIngredients []map[string]any `json:"detected_ingredients"`
	IngredientNames     []string         `json:"ingredient_names"`
	TotalItems          int              `json:"total_items"`
	ImageInfo           struct {
		Format string `json:"format"`
		Width  int    `json:"width"`
	} `json:"image_info"`
	Strategy recipe.Strategy         `json:"strategy"`
	Recipes  []recipe.Recommendation `json:"recipes"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, common.ParseJSONBytes(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestDetectMultipart(t *testing.T) {
	r := newRouter(testConfig(), breadDetector())

	w := serve(r, multipartRequest(t, "/api/v1/fridge/detect", "image", pngBytes(t)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[detectBody](t, w)
	assert.Equal(t, "Successfully detected 3 ingredients", body.Message)
	assert.Equal(t, "stub", body.Detector)
	assert.Equal(t, []string{"bread", "garlic", "butter"}, body.IngredientNames)
	assert.Equal(t, 3, body.TotalItems)
	assert.Equal(t, "png", body.ImageInfo.Format)
	require.Len(t, body.DetectedIngredients, 3)
	assert.Equal(t, "bread", body.DetectedIngredients[0]["class_name"])
	assert.Equal(t, "detection", body.DetectedIngredients[0]["source"])
}

func TestDetectAcceptsFileField(t *testing.T) {
	r := newRouter(testConfig(), breadDetector())

	w := serve(r, multipartRequest(t, "/api/v1/fridge/detect?confidence_threshold=0.1", "file", pngBytes(t)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[detectBody](t, w).IngredientNames, "onion")
}

func TestDetectDataURI(t *testing.T) {
	r := newRouter(testConfig(), breadDetector())
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))

	w := serve(r, jsonRequest("/api/v1/fridge/detect", `{"image": "`+uri+`"}`))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[detectBody](t, w).IngredientNames, 3)
}

func TestDetectErrors(t *testing.T) {
	tests := []struct {
		name   string
		det    vision.Detector
		req    func(t *testing.T) *http.Request
		status int
		code   string
	}{
		{
			name: "missing multipart field",
			det:  breadDetector(),
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/fridge/detect", "photo", pngBytes(t))
			},
			status: http.StatusBadRequest,
			code:   common.ErrCodeInvalidRequest,
		},
		{
			name: "not an image",
			det:  breadDetector(),
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/fridge/detect", "image", []byte("plain text"))
			},
			status: http.StatusBadRequest,
			code:   "INVALID_IMAGE_TYPE",
		},
		{
			name: "bad base64",
			det:  breadDetector(),
			req: func(*testing.T) *http.Request {
				return jsonRequest("/api/v1/fridge/detect", `{"image": "data:image/png;base64,!!!"}`)
			},
			status: http.StatusBadRequest,
			code:   "INVALID_IMAGE_FORMAT",
		},
		{
			name: "empty json",
			det:  breadDetector(),
			req: func(*testing.T) *http.Request {
				return jsonRequest("/api/v1/fridge/detect", `{}`)
			},
			status: http.StatusBadRequest,
			code:   common.ErrCodeInvalidRequest,
		},
		{
			name: "threshold out of range",
			det:  breadDetector(),
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/fridge/detect?confidence_threshold=2", "image", pngBytes(t))
			},
			status: http.StatusBadRequest,
			code:   common.ErrCodeInvalidRequest,
		},
		{
			name: "no detector",
			det:  nil,
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/api/v1/fridge/detect", "image", pngBytes(t))
			},
			status: http.StatusServiceUnavailable,
			code:   "DETECTOR_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(newRouter(testConfig(), tt.det), tt.req(t))

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[common.ErrorResponse](t, w).Code)
		})
	}
}

func TestAnalyzeRecommends(t *testing.T) {
	r := newRouter(testConfig(), breadDetector())

	w := serve(r, multipartRequest(t, "/api/v1/fridge/analyze?top_k=1", "image", pngBytes(t)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[detectBody](t, w)
	assert.Equal(t, recipe.StrategyKeyword, body.Strategy)
	require.Len(t, body.Recipes, 1)
	assert.Equal(t, "Garlic Bread", body.Recipes[0].Name)
	assert.InDelta(t, 100.0, body.Recipes[0].Score, 1e-9)
}

func TestAnalyzeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Features.EnableRecipeRecommendations = false
	r := newRouter(cfg, breadDetector())

	w := serve(r, multipartRequest(t, "/api/v1/fridge/analyze", "image", pngBytes(t)))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "FEATURE_DISABLED", decode[common.ErrorResponse](t, w).Code)
}
