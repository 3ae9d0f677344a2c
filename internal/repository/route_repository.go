package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campus-shuttle/shuttle-api/internal/models"
)

// RouteRepository reads route documents.
type RouteRepository struct {
	db *sqlx.DB
}

func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// List returns all routes.
func (r *RouteRepository) List(ctx context.Context) ([]models.Route, error) {
	const query = `SELECT id, origin, destination, via, distance_km FROM routes`
	var routes []models.Route
	if err := r.db.SelectContext(ctx, &routes, query); err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}
