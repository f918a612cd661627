// Package database persists booking aggregates in sqlite and serves the
// booked-day/booked-date snapshots the conflict checker consumes.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            listing_id TEXT NOT NULL,
            customer_id TEXT NOT NULL,
            provider_id TEXT NOT NULL,
            type TEXT NOT NULL,
            rate TEXT NOT NULL,
            payment_method TEXT NOT NULL DEFAULT 'card',
            schedule TEXT NOT NULL DEFAULT '[]',
            start_date DATETIME NOT NULL,
            end_date DATETIME,
            dates TEXT NOT NULL DEFAULT '[]',
            exceptions TEXT NOT NULL DEFAULT '{}',
            last_line_items TEXT NOT NULL DEFAULT '[]',
            status TEXT NOT NULL DEFAULT 'pending',
            last_charged_at DATETIME,
            next_charge_at DATETIME,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            version INTEGER NOT NULL DEFAULT 1
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_listing ON bookings(listing_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_type ON bookings(type)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_next_charge ON bookings(next_charge_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("execute %q: %w", query, err)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
