package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-shuttle/shuttle-api/internal/models"
)

// ScheduleRepository reads and writes schedule documents.
type ScheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns every schedule row.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.ScheduleRow, error) {
	const query = `SELECT id, route_id, bus_id, departure_time, arrival_time, day_of_week, parent_schedule_id FROM schedules`
	var rows []models.ScheduleRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return rows, nil
}

// SetBus points one schedule at busID.
func (r *ScheduleRepository) SetBus(ctx context.Context, scheduleID, busID string) error {
	query := r.db.Rebind(`UPDATE schedules SET bus_id = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, busID, scheduleID)
	if err != nil {
		return fmt.Errorf("set bus on schedule %s: %w", scheduleID, err)
	}
	return expectAffected(res, "set bus on schedule "+scheduleID)
}

// ClearBus unassigns busID from every schedule referencing it and returns how many changed.
func (r *ScheduleRepository) ClearBus(ctx context.Context, busID string) (int64, error) {
	query := r.db.Rebind(`UPDATE schedules SET bus_id = NULL WHERE bus_id = ?`)
	res, err := r.db.ExecContext(ctx, query, busID)
	if err != nil {
		return 0, fmt.Errorf("clear bus %s from schedules: %w", busID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear bus %s from schedules: %w", busID, err)
	}
	return n, nil
}

// Create inserts a schedule, assigning an id when empty.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	const query = `INSERT INTO schedules (id, route_id, bus_id, departure_time, arrival_time, day_of_week, parent_schedule_id)
VALUES (:id, :route_id, :bus_id, :departure_time, :arrival_time, :day_of_week, :parent_schedule_id)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}
