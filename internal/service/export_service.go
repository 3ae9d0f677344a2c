package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
	"github.com/campus-shuttle/shuttle-api/pkg/export"
	"github.com/campus-shuttle/shuttle-api/pkg/storage"
)

type suggestionSource interface {
	Advise(ctx context.Context, date string) (*models.AdvisoryPass, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type tokenSigner interface {
	Generate(reportID, relPath string) (string, time.Time, error)
	Parse(token string) (reportID, relPath string, err error)
}

// ExportConfig tunes report exports.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult describes a stored report.
type ExportResult struct {
	ID          string        `json:"id"`
	Date        string        `json:"date"`
	Format      export.Format `json:"format"`
	Suggestions int           `json:"suggestions"`
	URL         string        `json:"url"`
	ExpiresAt   time.Time     `json:"expiresAt"`
}

// ExportService renders advisory passes to downloadable CSV or PDF files.
type ExportService struct {
	source  suggestionSource
	storage fileStorage
	signer  tokenSigner
	csv     datasetRenderer
	pdf     datasetRenderer
	cfg     ExportConfig
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers use the defaults.
func NewExportService(source suggestionSource, files fileStorage, signer tokenSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{source: source, storage: files, signer: signer, csv: csv, pdf: pdf, cfg: cfg, logger: logger}
}

// Generate runs an advisory pass for date and stores it in format.
func (s *ExportService) Generate(ctx context.Context, date string, format export.Format) (*ExportResult, error) {
	var renderer datasetRenderer
	switch format {
	case export.FormatCSV:
		renderer = s.csv
	case export.FormatPDF:
		renderer = s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	pass, err := s.source.Advise(ctx, date)
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(suggestionDataset(pass))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	if removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("report cleanup failed", zap.Error(err))
	} else if len(removed) > 0 {
		s.logger.Debug("expired reports removed", zap.Int("count", len(removed)))
	}

	id := uuid.NewString()
	relPath, err := s.storage.Save(path.Join(pass.Date, id+"."+string(format)), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign report url")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		ID:          id,
		Date:        pass.Date,
		Format:      format,
		Suggestions: len(pass.Suggestions),
		URL:         fmt.Sprintf("%s/advisor/reports/download?token=%s", prefix, token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Open resolves a download token to the stored file and its format.
func (s *ExportService) Open(token string) (*os.File, export.Format, error) {
	_, relPath, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report not found")
	}
	return file, export.Format(strings.TrimPrefix(path.Ext(relPath), ".")), nil
}

var suggestionHeaders = []string{"Priority", "Category", "Action", "Route", "Departure", "Current Bus", "Demand", "Suggested Bus", "Reason"}

func suggestionDataset(pass *models.AdvisoryPass) export.Dataset {
	rows := make([]map[string]string, 0, len(pass.Suggestions))
	for i, s := range pass.Suggestions {
		rows = append(rows, map[string]string{
			"Priority":      strconv.Itoa(i + 1),
			"Category":      s.Category.Label(),
			"Action":        string(s.Action),
			"Route":         s.Route.Label(),
			"Departure":     s.Schedule.DepartureTime,
			"Current Bus":   busLabel(s.CurrentBus),
			"Demand":        strconv.Itoa(s.Demand),
			"Suggested Bus": busLabel(s.SuggestedBus),
			"Reason":        s.Reason,
		})
	}
	return export.Dataset{
		Title:    "Bus assignment suggestions",
		Subtitle: fmt.Sprintf("%s (%s), %d operating schedules", pass.Date, pass.Weekday, pass.Operating),
		Headers:  suggestionHeaders,
		Rows:     rows,
	}
}

func busLabel(bus *models.Bus) string {
	if bus == nil {
		return ""
	}
	return fmt.Sprintf("%s (%d)", bus.Number, bus.Capacity)
}
