package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/campus-shuttle/shuttle-api/internal/dto"
	"github.com/campus-shuttle/shuttle-api/internal/service"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
	"github.com/campus-shuttle/shuttle-api/pkg/export"
	"github.com/campus-shuttle/shuttle-api/pkg/response"
)

type reportService interface {
	Generate(ctx context.Context, date string, format export.Format) (*service.ExportResult, error)
	Open(token string) (*os.File, export.Format, error)
}

// ReportHandler exports suggestion reports.
type ReportHandler struct {
	reports  reportService
	location *time.Location
	validate *validator.Validate
	now      func() time.Time
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService, location *time.Location, validate *validator.Validate) *ReportHandler {
	if location == nil {
		location = time.UTC
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportHandler{reports: reports, location: location, validate: validate, now: time.Now}
}

// Generate godoc
// @Summary Export the suggestions of a date as CSV or PDF
// @Tags Advisor
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Report request"
// @Success 201 {object} response.Envelope
// @Router /advisor/reports [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}
	if req.Date == "" {
		req.Date = today(h.location, h.now)
	}
	result, err := h.reports.Generate(c.Request.Context(), req.Date, export.Format(req.Format))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an exported report by signed token
// @Tags Advisor
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200
// @Router /advisor/reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	file, format, err := h.reports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read report"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), format.ContentType(), file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", "suggestions-"+filepath.Base(file.Name())),
	})
}
