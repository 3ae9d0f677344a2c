package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Schema is the store layout. Applied on every SQLite open and on Postgres when DB_AUTO_MIGRATE is set.
const Schema = `
CREATE TABLE IF NOT EXISTS routes (
	id          TEXT PRIMARY KEY,
	origin      TEXT NOT NULL,
	destination TEXT NOT NULL,
	via         TEXT,
	distance_km REAL
);

CREATE TABLE IF NOT EXISTS buses (
	id                TEXT PRIMARY KEY,
	bus_number        TEXT NOT NULL,
	capacity          INTEGER,
	status            TEXT NOT NULL,
	assigned_route_id TEXT
);

CREATE TABLE IF NOT EXISTS schedules (
	id             TEXT PRIMARY KEY,
	route_id       TEXT,
	bus_id         TEXT,
	departure_time TEXT NOT NULL,
	arrival_time   TEXT NOT NULL,
	day_of_week    TEXT,
	parent_schedule_id TEXT
);

CREATE TABLE IF NOT EXISTS reservations (
	id               TEXT PRIMARY KEY,
	student_id       TEXT NOT NULL,
	bus_id           TEXT,
	schedule_id      TEXT NOT NULL,
	reservation_date TEXT NOT NULL,
	status           TEXT NOT NULL,
	booking_time     TIMESTAMP
);

CREATE TABLE IF NOT EXISTS announcements (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	bus_id     TEXT,
	route_id   TEXT,
	is_active  BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS advisor_action_logs (
	id            TEXT PRIMARY KEY,
	action        TEXT NOT NULL,
	actor_id      TEXT NOT NULL,
	schedule_id   TEXT,
	bus_id        TEXT,
	target_date   TEXT NOT NULL,
	status        TEXT NOT NULL,
	steps         TEXT NOT NULL,
	error_message TEXT,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
`

// NewSQLite opens an embedded SQLite store and applies the schema.
// Used for local development and end-to-end tests.
func NewSQLite(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared across queries
	db.SetMaxOpenConns(1)

	if err := Migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies Schema idempotently.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
