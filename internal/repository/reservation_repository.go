package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campus-shuttle/shuttle-api/internal/models"
)

// ReservationRepository reads reservation documents.
type ReservationRepository struct {
	db *sqlx.DB
}

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, student_id, bus_id, schedule_id, reservation_date, status, booking_time`

// List returns every reservation row.
func (r *ReservationRepository) List(ctx context.Context) ([]models.ReservationRow, error) {
	var rows []models.ReservationRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+reservationColumns+` FROM reservations`); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return rows, nil
}

// ListBySchedule returns the reservation rows of one schedule across all dates.
func (r *ReservationRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ReservationRow, error) {
	query := r.db.Rebind(`SELECT ` + reservationColumns + ` FROM reservations WHERE schedule_id = ?`)
	var rows []models.ReservationRow
	if err := r.db.SelectContext(ctx, &rows, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list reservations for schedule %s: %w", scheduleID, err)
	}
	return rows, nil
}
