package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
)

// sample returns the value of the series in family name whose labels include want.
func sample(t *testing.T, m *MetricsService, name string, want map[string]string) float64 {
	t.Helper()
	families, err := m.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if hasLabels(metric, want) {
				switch {
				case metric.GetGauge() != nil:
					return metric.GetGauge().GetValue()
				case metric.GetCounter() != nil:
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func seriesCount(t *testing.T, m *MetricsService, name string) int {
	t.Helper()
	families, err := m.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return len(family.GetMetric())
		}
	}
	return 0
}

func hasLabels(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestMetricsSuggestionGaugeResetsEveryPass(t *testing.T) {
	m := NewMetricsService()
	m.ObserveSuggestions([]models.Suggestion{
		{Category: models.CategoryAssignmentNeeded},
		{Category: models.CategoryAssignmentNeeded},
		{Category: models.CategoryUnderutilized},
	})
	assert.Equal(t, 2.0, sample(t, m, "advisor_suggestions", map[string]string{"category": string(models.CategoryAssignmentNeeded)}))

	m.ObserveSuggestions(nil)
	assert.Equal(t, 0.0, sample(t, m, "advisor_suggestions", map[string]string{"category": string(models.CategoryAssignmentNeeded)}))
	assert.Equal(t, 0.0, sample(t, m, "advisor_suggestions", map[string]string{"category": string(models.CategoryUnderutilized)}))
}

func TestMetricsActionAndPassOutcome(t *testing.T) {
	m := NewMetricsService()
	m.ObserveAction(models.ActionAssign, models.ActionStatusCompleted)
	m.ObserveAction(models.ActionAssign, models.ActionStatusCompleted)
	m.ObserveAction(models.ActionDeactivate, models.ActionStatusPartial)
	assert.Equal(t, 2.0, sample(t, m, "advisor_actions_total", map[string]string{"action": "assign", "status": "COMPLETED"}))
	assert.Equal(t, 1.0, sample(t, m, "advisor_actions_total", map[string]string{"action": "deactivate", "status": "PARTIAL"}))

	m.ObserveAdvisoryPass(time.Millisecond, nil)
	m.ObserveAdvisoryPass(time.Millisecond, appErrors.ErrAdvisorLoad)
	m.ObserveAdvisoryPass(time.Millisecond, appErrors.ErrValidation)
	m.ObserveAdvisoryPass(time.Millisecond, errors.New("raw"))
	assert.Equal(t, 3, seriesCount(t, m, "advisor_pass_duration_seconds"))
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/advisor/suggestions", 200, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/api/v1/advisor/suggestions",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "goroutines_total")

	var nilMetrics *MetricsService
	rec = httptest.NewRecorder()
	nilMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
