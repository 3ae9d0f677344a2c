package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campus-shuttle/shuttle-api/internal/models"
)

// BusRepository reads and writes bus documents.
type BusRepository struct {
	db *sqlx.DB
}

func NewBusRepository(db *sqlx.DB) *BusRepository {
	return &BusRepository{db: db}
}

// List returns every bus row unfiltered.
func (r *BusRepository) List(ctx context.Context) ([]models.BusRow, error) {
	const query = `SELECT id, bus_number, capacity, status, assigned_route_id FROM buses`
	var rows []models.BusRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list buses: %w", err)
	}
	return rows, nil
}

// Update applies a partial write to one bus. Returns sql.ErrNoRows when the bus does not exist.
func (r *BusRepository) Update(ctx context.Context, id string, update models.BusUpdate) error {
	sets := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	switch {
	case update.ClearAssignedRoute:
		sets = append(sets, "assigned_route_id = NULL")
	case update.AssignedRouteID != nil:
		sets = append(sets, "assigned_route_id = ?")
		args = append(args, *update.AssignedRouteID)
	}
	if len(sets) == 0 {
		return fmt.Errorf("update bus %s: no fields", id)
	}
	args = append(args, id)

	query := r.db.Rebind(fmt.Sprintf("UPDATE buses SET %s WHERE id = ?", strings.Join(sets, ", ")))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update bus %s: %w", id, err)
	}
	return expectAffected(res, "update bus "+id)
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}
