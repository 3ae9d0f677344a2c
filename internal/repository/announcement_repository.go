package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-shuttle/shuttle-api/internal/models"
)

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// ListActive returns the newest active announcements first.
func (r *AnnouncementRepository) ListActive(ctx context.Context, limit int) ([]models.Announcement, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := r.db.Rebind(`SELECT id, title, message, bus_id, route_id, is_active, created_at
FROM announcements WHERE is_active = ? ORDER BY created_at DESC LIMIT ?`)
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, true, limit); err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return announcements, nil
}

// GetByID returns an announcement by identifier.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := r.db.Rebind(`SELECT id, title, message, bus_id, route_id, is_active, created_at FROM announcements WHERE id = ?`)
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO announcements (id, title, message, bus_id, route_id, is_active, created_at)
VALUES (:id, :title, :message, :bus_id, :route_id, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// SetActive toggles visibility of an announcement.
func (r *AnnouncementRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := r.db.Rebind(`UPDATE announcements SET is_active = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("update announcement %s: %w", id, err)
	}
	return expectAffected(res, "update announcement "+id)
}
