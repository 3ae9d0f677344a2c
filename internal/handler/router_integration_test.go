package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	"github.com/campus-shuttle/shuttle-api/internal/repository"
	"github.com/campus-shuttle/shuttle-api/internal/service"
	"github.com/campus-shuttle/shuttle-api/pkg/database"
	"github.com/campus-shuttle/shuttle-api/pkg/storage"
)

const testSecret = "integration-secret"

type testServer struct {
	router http.Handler
	db     *sqlx.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	buses := repository.NewBusRepository(db)
	schedules := repository.NewScheduleRepository(db)
	metrics := service.NewMetricsService()

	advisor := service.NewAdvisorService(service.AdvisorServiceConfig{
		Buses:        buses,
		Routes:       repository.NewRouteRepository(db),
		Schedules:    schedules,
		Reservations: repository.NewReservationRepository(db),
		Metrics:      metrics,
	})
	notifications := service.NewNotificationService(nil, service.NotificationConfig{}, nil)
	announcements := service.NewAnnouncementService(repository.NewAnnouncementRepository(db), notifications, nil, nil)
	actions := service.NewActionService(service.ActionServiceConfig{
		Advisor:                   advisor,
		Buses:                     buses,
		Schedules:                 schedules,
		Announcements:             announcements,
		Logs:                      repository.NewActionLogRepository(db),
		Metrics:                   metrics,
		DeactivateClearsSchedules: true,
	})

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exports := service.NewExportService(advisor, files, storage.NewSignedURLSigner(testSecret, time.Hour), service.ExportConfig{APIPrefix: "/api/v1"}, nil, nil, nil)

	router := NewRouter(RouterConfig{
		APIPrefix:     "/api/v1",
		Auth:          service.NewAuthService(testSecret),
		Locks:         service.NewActionLockService(nil, time.Minute, nil),
		Observer:      metrics,
		Advisor:       NewAdvisorHandler(advisor, actions, time.UTC, nil),
		Reports:       NewReportHandler(exports, time.UTC, nil),
		Announcements: NewAnnouncementHandler(announcements, nil),
		Metrics:       NewMetricsHandler(metrics.Handler(), map[string]ReadinessCheck{"database": db.PingContext}),
	})
	return &testServer{router: router, db: db}
}

func (s *testServer) seed(t *testing.T) {
	t.Helper()
	stmts := []string{
		`INSERT INTO routes (id, origin, destination) VALUES ('r-mirpur', 'Campus', 'Mirpur'), ('r-uttara', 'Campus', 'Uttara')`,
		`INSERT INTO buses (id, bus_number, capacity, status) VALUES
			('b-15', 'DH-15', 15, 'Active'),
			('b-25', 'DH-25', 25, 'active'),
			('b-50', 'DH-50', 50, 'Active')`,
		`INSERT INTO schedules (id, route_id, bus_id, departure_time, arrival_time, day_of_week) VALUES
			('s-morning', 'r-mirpur', NULL, '07:30', '08:30', 'Everyday'),
			('s-late', 'r-uttara', 'b-50', '18:00', '19:00', 'Monday, Wednesday')`,
	}
	for _, stmt := range stmts {
		_, err := s.db.Exec(stmt)
		require.NoError(t, err)
	}
	for i := 0; i < 20; i++ {
		_, err := s.db.Exec(`INSERT INTO reservations (id, student_id, schedule_id, reservation_date, status) VALUES (?, ?, 's-morning', '2025-03-03', 'Booked')`,
			"res-"+string(rune('a'+i)), "stu")
		require.NoError(t, err)
	}
	_, err := s.db.Exec(`INSERT INTO reservations (id, student_id, schedule_id, reservation_date, status) VALUES ('res-late', 'stu', 's-late', '2025-03-03T10:00:00Z', 'Booked')`)
	require.NoError(t, err)
}

func (s *testServer) do(t *testing.T, method, path string, role models.UserRole, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.JWTClaims{
			UserID:           "user-" + strings.ToLower(string(role)),
			Role:             role,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func suggestionsOf(t *testing.T, w *httptest.ResponseRecorder) []models.Suggestion {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out []models.Suggestion
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &out))
	return out
}

func TestAdvisorRoundTripOverSQLite(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t)

	suggestions := suggestionsOf(t, srv.do(t, http.MethodGet, "/api/v1/advisor/suggestions?date=2025-03-03", models.RoleAdmin, nil))
	require.Len(t, suggestions, 2)
	assert.Equal(t, models.CategoryAssignmentNeeded, suggestions[0].Category)
	assert.Equal(t, "s-morning", suggestions[0].Schedule.ID)
	assert.Equal(t, 20, suggestions[0].Demand)
	require.NotNil(t, suggestions[0].SuggestedBus)
	assert.Equal(t, "b-25", suggestions[0].SuggestedBus.ID)
	assert.Equal(t, models.CategoryUnderutilized, suggestions[1].Category)
	assert.Equal(t, "s-late", suggestions[1].Schedule.ID)
	assert.Equal(t, 1, suggestions[1].Demand)

	w := srv.do(t, http.MethodPost, "/api/v1/advisor/actions/apply", models.RoleAdmin, map[string]string{"scheduleId": "s-morning", "date": "2025-03-03"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result service.ActionResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, models.ActionStatusCompleted, result.Status)
	require.NotNil(t, result.Announcement)
	assert.Equal(t, "Bus Assignment: Mirpur", result.Announcement.Title)
	require.NotNil(t, result.Pass)
	require.Len(t, result.Pass.Suggestions, 1)
	assert.Equal(t, "s-late", result.Pass.Suggestions[0].Schedule.ID)

	var busID string
	require.NoError(t, srv.db.Get(&busID, `SELECT bus_id FROM schedules WHERE id = 's-morning'`))
	assert.Equal(t, "b-25", busID)
	var routeID string
	require.NoError(t, srv.db.Get(&routeID, `SELECT assigned_route_id FROM buses WHERE id = 'b-25'`))
	assert.Equal(t, "r-mirpur", routeID)

	// applying again finds nothing to do
	w = srv.do(t, http.MethodPost, "/api/v1/advisor/actions/apply", models.RoleAdmin, map[string]string{"scheduleId": "s-morning", "date": "2025-03-03"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "STALE_SUGGESTION", decode(t, w).Error.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/announcements", models.RoleStudent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var feed []models.Announcement
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, "Bus Assignment: Mirpur", feed[0].Title)

	w = srv.do(t, http.MethodGet, "/api/v1/advisor/actions", models.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []models.ActionLog
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionStatusCompleted, logs[0].Status)
	assert.Equal(t, 3, logs[0].Steps.Completed())

	w = srv.do(t, http.MethodGet, "/api/v1/advisor/schedules/s-morning/occupancy?date=2025-03-03", models.RoleStudent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var occupancy service.Occupancy
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &occupancy))
	assert.Equal(t, 20, occupancy.Booked)
	assert.Equal(t, 5, occupancy.Remaining)
}

func TestAdvisorRoutesEnforceRoles(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/v1/advisor/suggestions", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, "/api/v1/advisor/suggestions", models.RoleStudent, nil).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodPost, "/api/v1/advisor/actions/assign", models.RoleStudent, map[string]string{}).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/advisor/suggestions?date=2025-03-03", models.RoleSuperAdmin, nil).Code)
}

func TestEmptyStoreYieldsNoSuggestions(t *testing.T) {
	srv := newTestServer(t)
	assert.Empty(t, suggestionsOf(t, srv.do(t, http.MethodGet, "/api/v1/advisor/suggestions?date=2025-03-03", models.RoleAdmin, nil)))
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/v1/advisor/suggestions?date=03-03-2025", models.RoleAdmin, nil).Code)
}

func TestReportExportAndDownload(t *testing.T) {
	srv := newTestServer(t)
	srv.seed(t)

	w := srv.do(t, http.MethodPost, "/api/v1/advisor/reports", models.RoleAdmin, map[string]string{"date": "2025-03-03", "format": "csv"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result service.ExportResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, 2, result.Suggestions)

	link, err := url.Parse(result.URL)
	require.NoError(t, err)
	w = srv.do(t, http.MethodGet, link.RequestURI(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "Priority,Category,Action"))

	w = srv.do(t, http.MethodGet, "/api/v1/advisor/reports/download?token=forged.1.x.y", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/ready", "", nil).Code)

	w := srv.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
