package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ObserveDetections([]string{"apple", "apple", "milk"})
	m.ObserveRecommendation("keyword", true)
	m.ObserveRecommendation("llm", false)
	m.SetCatalogSize(42)
	m.ObserveHTTP(http.MethodGet, "/health", http.StatusOK, 5*time.Millisecond)
	m.ObserveHTTP(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	m.IncStageError("detect")

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Detections.WithLabelValues("apple")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Recommendations.WithLabelValues("keyword")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.LLMFallbacks), 1e-9)
	assert.InDelta(t, 42.0, testutil.ToFloat64(m.CatalogSize), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.PipelineErrors.WithLabelValues("detect")), 1e-9)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.SetCatalogSize(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fridge_vision_catalog_recipes 3")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveDetections([]string{"egg"})
		m.ObserveStage("detect", time.Second)
		m.IncStageError("detect")
		m.ObserveRecommendation("llm", true)
		m.SetCatalogSize(1)
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})
}
