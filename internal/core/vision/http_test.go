package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDetectorURL = "http://detector.test"
	testOCRURL      = "http://ocr.test"
)

func newMockedDetector(t *testing.T) *HTTPDetector {
	t.Helper()
	d := NewHTTPDetector(HTTPDetectorConfig{
		Endpoint:      testDetectorURL,
		Timeout:       time.Second,
		ConfThreshold: 0.5,
		IOUThreshold:  0.45,
		ImageSize:     640,
	})
	httpmock.ActivateNonDefault(d.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return d
}

func TestHTTPDetectorDetect(t *testing.T) {
	d := newMockedDetector(t)
	image := []byte("fake-jpeg")

	httpmock.RegisterResponder(http.MethodPost, testDetectorURL+"/detect",
		func(req *http.Request) (*http.Response, error) {
			var body detectRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
			}
			assert.Equal(t, base64.StdEncoding.EncodeToString(image), body.Image)
			assert.InDelta(t, 0.5, body.Conf, 1e-9)
			assert.InDelta(t, 0.45, body.IOU, 1e-9)
			assert.Equal(t, 640, body.ImageSize)
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
				"detections": []map[string]any{
					{"class_name": "apple", "confidence": 0.92, "bbox": []float64{10, 20, 110, 120}},
					{"class_name": "milk", "confidence": 0.81, "bbox": []float64{0, 0, 50, 200}},
				},
				"image_width":  640,
				"image_height": 480,
			})
		})

	res, err := d.Detect(context.Background(), image)
	require.NoError(t, err)

	assert.Equal(t, 640, res.ImageWidth)
	assert.Equal(t, 480, res.ImageHeight)
	require.Len(t, res.Detections, 2)
	assert.Equal(t, "apple", res.Detections[0].ClassName)
	assert.InDelta(t, 10000.0, res.Detections[0].Area(), 1e-9)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHTTPDetectorErrors(t *testing.T) {
	d := newMockedDetector(t)

	_, err := d.Detect(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	httpmock.RegisterResponder(http.MethodPost, testDetectorURL+"/detect",
		httpmock.NewStringResponder(http.StatusInternalServerError, "model not loaded"))

	_, err = d.Detect(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestHTTPOCRExtractText(t *testing.T) {
	o := NewHTTPOCR(HTTPOCRConfig{
		Endpoint:            testOCRURL,
		Timeout:             time.Second,
		Languages:           []string{"en"},
		ConfidenceThreshold: 0.3,
	})
	httpmock.ActivateNonDefault(o.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodPost, testOCRURL+"/ocr",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
			"texts": []map[string]any{
				{"text": "Greek Yogurt", "confidence": 0.88, "bbox": map[string]float64{"x": 1, "y": 2, "width": 30, "height": 8}},
				{"text": "~~", "confidence": 0.05},
			},
		}))

	res, err := o.ExtractText(context.Background(), []byte("img"))
	require.NoError(t, err)

	assert.Equal(t, OCRStatusSuccess, res.Status)
	assert.Equal(t, 1, res.NumTexts)
	assert.Equal(t, "Greek Yogurt", res.FullText)
	assert.InDelta(t, 30.0, res.Texts[0].BBox.Width, 1e-9)
}

func TestHTTPOCRBackendFailure(t *testing.T) {
	o := NewHTTPOCR(HTTPOCRConfig{Endpoint: testOCRURL, Timeout: time.Second})
	httpmock.ActivateNonDefault(o.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodPost, testOCRURL+"/ocr",
		httpmock.NewStringResponder(http.StatusBadGateway, "upstream"))

	_, err := o.ExtractText(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, ErrBackend)
}
