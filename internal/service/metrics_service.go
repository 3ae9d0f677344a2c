package service

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
)

// MetricsService owns the Prometheus registry exposed on /metrics.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec
	suggestions     *prometheus.GaugeVec
	actions         *prometheus.CounterVec
}

// NewMetricsService registers HTTP and advisor collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	passDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "advisor_pass_duration_seconds",
		Help:    "Duration of advisory passes including store reads",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})

	suggestions := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "advisor_suggestions",
		Help: "Suggestions produced by the latest advisory pass, by category",
	}, []string{"category"})

	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "advisor_actions_total",
		Help: "Advisor actions executed, by action and final status",
	}, []string{"action", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, passDuration, suggestions, actions, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		passDuration:    passDuration,
		suggestions:     suggestions,
		actions:         actions,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveAdvisoryPass records the duration of a pass labelled by outcome.
func (m *MetricsService) ObserveAdvisoryPass(duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "load_failed"
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code != appErrors.ErrAdvisorLoad.Code {
			outcome = "error"
		}
	}
	m.passDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveSuggestions sets the per-category gauge from the latest pass.
func (m *MetricsService) ObserveSuggestions(suggestions []models.Suggestion) {
	if m == nil {
		return
	}
	counts := make(map[models.SuggestionCategory]int, len(models.Categories))
	for _, s := range suggestions {
		counts[s.Category]++
	}
	for _, category := range models.Categories {
		m.suggestions.WithLabelValues(string(category)).Set(float64(counts[category]))
	}
}

// ObserveAction counts an executed action.
func (m *MetricsService) ObserveAction(action models.SuggestionAction, status models.ActionStatus) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(string(action), string(status)).Inc()
}
