package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	"github.com/campus-shuttle/shuttle-api/internal/service"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
)

type advisorStub struct {
	dates []string
	pass  *models.AdvisoryPass
	err   error
}

func (a *advisorStub) Advise(ctx context.Context, date string) (*models.AdvisoryPass, error) {
	a.dates = append(a.dates, date)
	return a.pass, a.err
}

func (a *advisorStub) Occupancy(ctx context.Context, scheduleID, date string) (*service.Occupancy, error) {
	a.dates = append(a.dates, date)
	if a.err != nil {
		return nil, a.err
	}
	return &service.Occupancy{ScheduleID: scheduleID, Date: date, Operating: true, Booked: 12, Capacity: 40, Remaining: 28}, nil
}

type actionStub struct {
	called string
	req    service.ActionRequest
	result *service.ActionResult
	err    error
}

func (a *actionStub) record(name string, req service.ActionRequest) (*service.ActionResult, error) {
	a.called, a.req = name, req
	return a.result, a.err
}

func (a *actionStub) Assign(ctx context.Context, req service.ActionRequest) (*service.ActionResult, error) {
	return a.record("assign", req)
}

func (a *actionStub) Activate(ctx context.Context, req service.ActionRequest) (*service.ActionResult, error) {
	return a.record("activate", req)
}

func (a *actionStub) AddExtraTrip(ctx context.Context, req service.ActionRequest) (*service.ActionResult, error) {
	return a.record("extra-trip", req)
}

func (a *actionStub) Deactivate(ctx context.Context, req service.ActionRequest) (*service.ActionResult, error) {
	return a.record("deactivate", req)
}

func (a *actionStub) Apply(ctx context.Context, req service.ActionRequest) (*service.ActionResult, error) {
	return a.record("apply", req)
}

func (a *actionStub) RecentActions(ctx context.Context, limit int) ([]models.ActionLog, error) {
	a.called = "recent"
	return []models.ActionLog{{ID: "log-1", Action: models.ActionAssign, Status: models.ActionStatusCompleted}}, nil
}

func newAdvisorHandlerForTest(advisor *advisorStub, actions *actionStub) *AdvisorHandler {
	dhaka := time.FixedZone("Asia/Dhaka", 6*3600)
	h := NewAdvisorHandler(advisor, actions, dhaka, nil)
	// 20:30 UTC on Sunday is already Monday in Dhaka
	h.now = func() time.Time { return time.Date(2025, 3, 2, 20, 30, 0, 0, time.UTC) }
	return h
}

func TestSuggestionsDefaultsToTodayInAdvisorTimezone(t *testing.T) {
	advisor := &advisorStub{pass: &models.AdvisoryPass{
		Date: "2025-03-03", Weekday: "Monday", Operating: 4,
		Suggestions: []models.Suggestion{{Category: models.CategoryAssignmentNeeded, Action: models.ActionAssign, Demand: 20}},
		Skipped:     []string{"sch-orphan"},
	}}
	h := newAdvisorHandlerForTest(advisor, &actionStub{})

	c, w := newGinContext(http.MethodGet, "/advisor/suggestions", nil)
	h.Suggestions(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"2025-03-03"}, advisor.dates)
	env := decode(t, w)
	var suggestions []models.Suggestion
	require.NoError(t, json.Unmarshal(env.Data, &suggestions))
	require.Len(t, suggestions, 1)
	assert.Equal(t, float64(4), env.Meta["operating"])
	assert.Equal(t, float64(1), env.Meta["total"])
	assert.Equal(t, []interface{}{"sch-orphan"}, env.Meta["skipped"])
}

func TestSuggestionsEmptyListIsNotNull(t *testing.T) {
	advisor := &advisorStub{pass: &models.AdvisoryPass{Date: "2025-03-04", Suggestions: []models.Suggestion{}}}
	h := newAdvisorHandlerForTest(advisor, &actionStub{})

	c, w := newGinContext(http.MethodGet, "/advisor/suggestions?date=2025-03-04", nil)
	h.Suggestions(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"2025-03-04"}, advisor.dates)
	assert.JSONEq(t, `[]`, string(decode(t, w).Data))
}

func TestSuggestionsLoadFailureIsRetryable(t *testing.T) {
	h := newAdvisorHandlerForTest(&advisorStub{err: appErrors.ErrAdvisorLoad}, &actionStub{})
	c, w := newGinContext(http.MethodGet, "/advisor/suggestions", nil)
	h.Suggestions(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decode(t, w)
	assert.Equal(t, "ADVISOR_LOAD_FAILED", env.Error.Code)
	assert.Equal(t, true, env.Meta["retryable"])
}

func TestActionEndpointsForwardPayload(t *testing.T) {
	actions := &actionStub{result: &service.ActionResult{Action: models.ActionAssign, Status: models.ActionStatusCompleted}}
	h := newAdvisorHandlerForTest(&advisorStub{}, actions)

	endpoints := map[string]gin.HandlerFunc{
		"assign":     h.Assign,
		"activate":   h.Activate,
		"extra-trip": h.ExtraTrip,
		"deactivate": h.Deactivate,
		"apply":      h.Apply,
	}
	for name, endpoint := range endpoints {
		c, w := newGinContext(http.MethodPost, "/advisor/actions/"+name, []byte(`{"scheduleId":"s1","busId":"b1"}`))
		asAdmin(c)
		endpoint(c)

		require.Equal(t, http.StatusOK, w.Code, name)
		assert.Equal(t, name, actions.called)
		assert.Equal(t, service.ActionRequest{ActorID: "admin-1", ScheduleID: "s1", BusID: "b1", Date: "2025-03-03"}, actions.req)
	}
}

func TestActionRejectsBadPayload(t *testing.T) {
	actions := &actionStub{}
	h := newAdvisorHandlerForTest(&advisorStub{}, actions)

	for _, body := range []string{`{`, `{"scheduleId":"s1","date":"03/03/2025"}`} {
		c, w := newGinContext(http.MethodPost, "/advisor/actions/assign", []byte(body))
		asAdmin(c)
		h.Assign(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, actions.called)

	c, w := newGinContext(http.MethodPost, "/advisor/actions/assign", []byte(`{}`))
	h.Assign(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActionPartialFailureCarriesSteps(t *testing.T) {
	steps := models.ActionSteps{{Name: "set_schedule_bus", Done: true}, {Name: "set_bus_route", Error: "timeout"}}
	partial := appErrors.WithDetails(appErrors.ErrPartialAction, map[string]interface{}{"actionLogId": "log-9", "steps": steps})
	h := newAdvisorHandlerForTest(&advisorStub{}, &actionStub{err: partial})

	c, w := newGinContext(http.MethodPost, "/advisor/actions/assign", []byte(`{"scheduleId":"s1","busId":"b1","date":"2025-03-03"}`))
	asAdmin(c)
	h.Assign(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decode(t, w)
	assert.Equal(t, "PARTIAL_ACTION", env.Error.Code)
	details := env.Error.Details.(map[string]interface{})
	assert.Equal(t, "log-9", details["actionLogId"])
	assert.Len(t, details["steps"], 2)
}

func TestActionReloadFailureIsFlagged(t *testing.T) {
	actions := &actionStub{result: &service.ActionResult{Action: models.ActionAssign, Status: models.ActionStatusCompleted, ReloadFailed: true}}
	h := newAdvisorHandlerForTest(&advisorStub{}, actions)

	c, w := newGinContext(http.MethodPost, "/advisor/actions/assign", []byte(`{"scheduleId":"s1","busId":"b1"}`))
	asAdmin(c)
	h.Assign(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w).Meta["reloadFailed"])
}

func TestRecentActionsAndOccupancy(t *testing.T) {
	advisor := &advisorStub{}
	actions := &actionStub{}
	h := newAdvisorHandlerForTest(advisor, actions)

	c, w := newGinContext(http.MethodGet, "/advisor/actions?limit=5", nil)
	h.RecentActions(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "recent", actions.called)

	c, w = newGinContext(http.MethodGet, "/advisor/actions?limit=-1", nil)
	h.RecentActions(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/advisor/schedules/s1/occupancy", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	h.Occupancy(c)
	require.Equal(t, http.StatusOK, w.Code)
	var occupancy service.Occupancy
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &occupancy))
	assert.Equal(t, "s1", occupancy.ScheduleID)
	assert.Equal(t, 28, occupancy.Remaining)
	assert.Equal(t, []string{"2025-03-03"}, advisor.dates)
}

