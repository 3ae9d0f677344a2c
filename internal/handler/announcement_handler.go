package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/campus-shuttle/shuttle-api/internal/dto"
	"github.com/campus-shuttle/shuttle-api/internal/models"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
	"github.com/campus-shuttle/shuttle-api/pkg/response"
)

type announcementService interface {
	ListActive(ctx context.Context, limit int) ([]models.Announcement, error)
	SetActive(ctx context.Context, id string, active bool) (*models.Announcement, error)
}

// AnnouncementHandler serves the rider announcement feed.
type AnnouncementHandler struct {
	service  announcementService
	validate *validator.Validate
}

func NewAnnouncementHandler(svc announcementService, validate *validator.Validate) *AnnouncementHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AnnouncementHandler{service: svc, validate: validate}
}

// List godoc
// @Summary Latest active announcements
// @Tags Announcements
// @Produce json
// @Param limit query int false "Max entries (default 10)"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	limit, err := queryLimit(c, 10, 50)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.ListActive(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// SetActive godoc
// @Summary Show or hide an announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body dto.UpdateAnnouncementRequest true "Visibility"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [patch]
func (h *AnnouncementHandler) SetActive(c *gin.Context) {
	var req dto.UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "isActive is required"))
		return
	}
	item, err := h.service.SetActive(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
