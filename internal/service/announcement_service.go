package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	appErrors "github.com/campus-shuttle/shuttle-api/pkg/errors"
)

type announcementRepository interface {
	ListActive(ctx context.Context, limit int) ([]models.Announcement, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	SetActive(ctx context.Context, id string, active bool) error
}

type announcementBroadcaster interface {
	BroadcastAnnouncement(ctx context.Context, announcement models.Announcement) error
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo        announcementRepository
	broadcaster announcementBroadcaster
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAnnouncementService constructs the service. broadcaster may be nil.
func NewAnnouncementService(repo announcementRepository, broadcaster announcementBroadcaster, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{repo: repo, broadcaster: broadcaster, validator: validate, logger: logger}
}

// CreateAnnouncementRequest describes a new announcement.
type CreateAnnouncementRequest struct {
	Title   string  `validate:"required,max=200"`
	Message string  `validate:"required"`
	BusID   *string `validate:"omitempty"`
	RouteID *string `validate:"omitempty"`
}

// Create persists an active announcement and queues its broadcast.
// A failed broadcast is logged; the announcement stays stored.
func (s *AnnouncementService) Create(ctx context.Context, req CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	announcement := &models.Announcement{
		Title:    req.Title,
		Message:  req.Message,
		BusID:    req.BusID,
		RouteID:  req.RouteID,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, err
	}
	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastAnnouncement(ctx, *announcement); err != nil {
			s.logger.Warn("failed to queue announcement broadcast", zap.String("announcement_id", announcement.ID), zap.Error(err))
		}
	}
	return announcement, nil
}

// ListActive returns the newest active announcements.
func (s *AnnouncementService) ListActive(ctx context.Context, limit int) ([]models.Announcement, error) {
	items, err := s.repo.ListActive(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return items, nil
}

// SetActive shows or hides an announcement.
func (s *AnnouncementService) SetActive(ctx context.Context, id string, active bool) (*models.Announcement, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return announcement, nil
}
