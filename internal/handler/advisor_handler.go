package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/campus-shuttle/shuttle-api/internal/dto"
	"github.com/campus-shuttle/shuttle-api/internal/middleware"
	"github.com/campus-shuttle/shuttle-api/internal/models"
	"github.com/campus-shuttle/shuttle-api/internal/service"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
	"github.com/campus-shuttle/shuttle-api/pkg/response"
)

type advisorService interface {
	Advise(ctx context.Context, date string) (*models.AdvisoryPass, error)
	Occupancy(ctx context.Context, scheduleID, date string) (*service.Occupancy, error)
}

type actionService interface {
	Assign(ctx context.Context, req service.ActionRequest) (*service.ActionResult, error)
	Activate(ctx context.Context, req service.ActionRequest) (*service.ActionResult, error)
	AddExtraTrip(ctx context.Context, req service.ActionRequest) (*service.ActionResult, error)
	Deactivate(ctx context.Context, req service.ActionRequest) (*service.ActionResult, error)
	Apply(ctx context.Context, req service.ActionRequest) (*service.ActionResult, error)
	RecentActions(ctx context.Context, limit int) ([]models.ActionLog, error)
}

type actionFunc func(ctx context.Context, req service.ActionRequest) (*service.ActionResult, error)

// AdvisorHandler exposes the assignment advisor to transport admins.
type AdvisorHandler struct {
	advisor  advisorService
	actions  actionService
	location *time.Location
	validate *validator.Validate
	now      func() time.Time
}

// NewAdvisorHandler constructs the handler. Dates default to today in location.
func NewAdvisorHandler(advisor advisorService, actions actionService, location *time.Location, validate *validator.Validate) *AdvisorHandler {
	if location == nil {
		location = time.UTC
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AdvisorHandler{advisor: advisor, actions: actions, location: location, validate: validate, now: time.Now}
}

// Suggestions godoc
// @Summary Bus assignment suggestions for a date
// @Tags Advisor
// @Produce json
// @Param date query string false "Target date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /advisor/suggestions [get]
func (h *AdvisorHandler) Suggestions(c *gin.Context) {
	date := c.DefaultQuery("date", today(h.location, h.now))
	pass, err := h.advisor.Advise(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "date", pass.Date)
	middleware.SetMeta(c, "weekday", pass.Weekday)
	middleware.SetMeta(c, "operating", pass.Operating)
	middleware.SetMeta(c, "total", len(pass.Suggestions))
	if len(pass.Skipped) > 0 {
		middleware.SetMeta(c, "skipped", pass.Skipped)
	}
	response.JSON(c, http.StatusOK, pass.Suggestions, middleware.ExtractMeta(c))
}

// Assign godoc
// @Summary Assign an Active bus to a schedule
// @Tags Advisor
// @Accept json
// @Produce json
// @Param payload body dto.ActionPayload true "scheduleId, busId, date"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /advisor/actions/assign [post]
func (h *AdvisorHandler) Assign(c *gin.Context) {
	h.runAction(c, h.actions.Assign)
}

// Activate godoc
// @Summary Set a bus Active
// @Tags Advisor
// @Accept json
// @Produce json
// @Param payload body dto.ActionPayload true "busId, date"
// @Success 200 {object} response.Envelope
// @Router /advisor/actions/activate [post]
func (h *AdvisorHandler) Activate(c *gin.Context) {
	h.runAction(c, h.actions.Activate)
}

// ExtraTrip godoc
// @Summary Run an extra trip of a schedule on another bus
// @Tags Advisor
// @Accept json
// @Produce json
// @Param payload body dto.ActionPayload true "scheduleId, busId, date"
// @Success 200 {object} response.Envelope
// @Router /advisor/actions/extra-trip [post]
func (h *AdvisorHandler) ExtraTrip(c *gin.Context) {
	h.runAction(c, h.actions.AddExtraTrip)
}

// Deactivate godoc
// @Summary Take a bus out of service
// @Tags Advisor
// @Accept json
// @Produce json
// @Param payload body dto.ActionPayload true "busId, date"
// @Success 200 {object} response.Envelope
// @Router /advisor/actions/deactivate [post]
func (h *AdvisorHandler) Deactivate(c *gin.Context) {
	h.runAction(c, h.actions.Deactivate)
}

// Apply godoc
// @Summary Apply the current suggestion for a schedule
// @Tags Advisor
// @Accept json
// @Produce json
// @Param payload body dto.ActionPayload true "scheduleId, date"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /advisor/actions/apply [post]
func (h *AdvisorHandler) Apply(c *gin.Context) {
	h.runAction(c, h.actions.Apply)
}

// RecentActions godoc
// @Summary Latest advisor actions with their step outcome
// @Tags Advisor
// @Produce json
// @Param limit query int false "Max entries (default 20)"
// @Success 200 {object} response.Envelope
// @Router /advisor/actions [get]
func (h *AdvisorHandler) RecentActions(c *gin.Context) {
	limit, err := queryLimit(c, 20, 100)
	if err != nil {
		response.Error(c, err)
		return
	}
	logs, err := h.actions.RecentActions(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Occupancy godoc
// @Summary Seats booked and remaining on a schedule
// @Tags Advisor
// @Produce json
// @Param id path string true "Schedule ID"
// @Param date query string false "Target date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /advisor/schedules/{id}/occupancy [get]
func (h *AdvisorHandler) Occupancy(c *gin.Context) {
	date := c.DefaultQuery("date", today(h.location, h.now))
	occupancy, err := h.advisor.Occupancy(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occupancy, nil)
}

func (h *AdvisorHandler) runAction(c *gin.Context, run actionFunc) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload dto.ActionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	if payload.Date == "" {
		payload.Date = today(h.location, h.now)
	}

	result, err := run(c.Request.Context(), service.ActionRequest{
		ActorID:    claims.UserID,
		ScheduleID: payload.ScheduleID,
		BusID:      payload.BusID,
		Date:       payload.Date,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if result.ReloadFailed {
		meta = map[string]interface{}{"reloadFailed": true}
	}
	response.JSON(c, http.StatusOK, result, meta)
}
