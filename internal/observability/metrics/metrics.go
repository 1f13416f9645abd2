// Package metrics 服務的 Prometheus 指標，使用獨立的 registry
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fridge_vision"

// Metrics 所有指標；nil 的 *Metrics 可安全呼叫，不會記錄任何東西
type Metrics struct {
	registry *prometheus.Registry

	Detections       *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec
	PipelineErrors   *prometheus.CounterVec
	Recommendations  *prometheus.CounterVec
	LLMFallbacks     prometheus.Counter
	CatalogSize      prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New 建立並註冊所有指標
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Total number of detections by ingredient class.",
		}, []string{"class"}),
		PipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of fridge image pipeline stages in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"stage"}),
		PipelineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_errors_total",
			Help:      "Total number of pipeline failures by stage.",
		}, []string{"stage"}),
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Total number of recommendation requests by strategy.",
		}, []string{"strategy"}),
		LLMFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_fallbacks_total",
			Help:      "Total number of LLM recommendations that fell back to keyword matching.",
		}),
		CatalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_recipes",
			Help:      "Number of recipes in the loaded catalog.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, c := range []prometheus.Collector{
		m.Detections,
		m.PipelineDuration,
		m.PipelineErrors,
		m.Recommendations,
		m.LLMFallbacks,
		m.CatalogSize,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Handler /metrics 的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDetections 依類別累計偵測數
func (m *Metrics) ObserveDetections(classes []string) {
	if m == nil {
		return
	}
	for _, c := range classes {
		m.Detections.WithLabelValues(c).Inc()
	}
}

// ObserveStage 記錄管線階段耗時
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncStageError 管線階段失敗次數加一
func (m *Metrics) IncStageError(stage string) {
	if m == nil {
		return
	}
	m.PipelineErrors.WithLabelValues(stage).Inc()
}

// ObserveRecommendation 記錄推薦策略與是否退回關鍵字比對
func (m *Metrics) ObserveRecommendation(strategy string, fallback bool) {
	if m == nil {
		return
	}
	m.Recommendations.WithLabelValues(strategy).Inc()
	if fallback {
		m.LLMFallbacks.Inc()
	}
}

// SetCatalogSize 更新目錄大小
func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.CatalogSize.Set(float64(n))
}

// ObserveHTTP 記錄 HTTP 請求
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
