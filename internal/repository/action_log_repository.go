package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-shuttle/shuttle-api/internal/models"
)

// ActionLogRepository persists the step log of advisor actions.
type ActionLogRepository struct {
	db *sqlx.DB
}

func NewActionLogRepository(db *sqlx.DB) *ActionLogRepository {
	return &ActionLogRepository{db: db}
}

// Create records the planned steps before any of them run.
func (r *ActionLogRepository) Create(ctx context.Context, log *models.ActionLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	log.CreatedAt = now
	log.UpdatedAt = now
	if log.Status == "" {
		log.Status = models.ActionStatusPending
	}
	const query = `INSERT INTO advisor_action_logs (id, action, actor_id, schedule_id, bus_id, target_date, status, steps, error_message, created_at, updated_at)
VALUES (:id, :action, :actor_id, :schedule_id, :bus_id, :target_date, :status, :steps, :error_message, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create action log: %w", err)
	}
	return nil
}

// Update stores step progress and the final status.
func (r *ActionLogRepository) Update(ctx context.Context, log *models.ActionLog) error {
	log.UpdatedAt = time.Now().UTC()
	const query = `UPDATE advisor_action_logs SET status = :status, steps = :steps, error_message = :error_message, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("update action log %s: %w", log.ID, err)
	}
	return nil
}

// ListRecent returns the latest logs, newest first.
func (r *ActionLogRepository) ListRecent(ctx context.Context, limit int) ([]models.ActionLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := r.db.Rebind(`SELECT id, action, actor_id, schedule_id, bus_id, target_date, status, steps, error_message, created_at, updated_at
FROM advisor_action_logs ORDER BY created_at DESC LIMIT ?`)
	var logs []models.ActionLog
	if err := r.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, fmt.Errorf("list action logs: %w", err)
	}
	return logs, nil
}
