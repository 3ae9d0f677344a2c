package models

import "time"

// Announcement is a notice shown to riders, usually created by an advisor action.
type Announcement struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	BusID     *string   `db:"bus_id" json:"busId,omitempty"`
	RouteID   *string   `db:"route_id" json:"routeId,omitempty"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"timestamp"`
}
