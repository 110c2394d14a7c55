// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/roadpulse/internal/logging"
)

// Migration is one versioned schema change. Statements run in order inside
// a single transaction together with the schema_migrations record.
type Migration struct {
	Version     int
	Name        string
	Description string
	Statements  []string
	AppliedAt   time.Time
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL
)`

// migrations must stay append-only once released: never edit or reorder
// an entry that may already be recorded in a deployed database.
var migrations = []Migration{
	{
		Version:     1,
		Name:        "create_positions",
		Description: "Append-only position history",
		Statements: []string{
			`CREATE SEQUENCE IF NOT EXISTS positions_id_seq START 1`,
			`CREATE TABLE IF NOT EXISTS positions (
				id BIGINT PRIMARY KEY DEFAULT nextval('positions_id_seq'),
				lat DOUBLE NOT NULL,
				lon DOUBLE NOT NULL,
				"timestamp" TEXT NOT NULL,
				source TEXT NOT NULL,
				user_id TEXT,
				segment_id TEXT,
				street_name TEXT,
				segment_length DOUBLE,
				bearing DOUBLE
			)`,
		},
	},
	{
		Version:     2,
		Name:        "create_users",
		Description: "Local identity store keyed by external subject",
		Statements: []string{
			`CREATE SEQUENCE IF NOT EXISTS users_id_seq START 1`,
			`CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY DEFAULT nextval('users_id_seq'),
				external_uid TEXT NOT NULL UNIQUE,
				display_name TEXT,
				created_at TIMESTAMP NOT NULL
			)`,
		},
	},
}

// indexes are created after migrations unless database.skip_indexes is set.
var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_positions_user_id ON positions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_positions_timestamp ON positions("timestamp")`,
	`CREATE INDEX IF NOT EXISTS idx_positions_segment_id ON positions(segment_id)`,
}

// runVersionedMigrations applies every migration not yet recorded.
func (db *DB) runVersionedMigrations(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	newMigrations := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return err
		}
		newMigrations++
	}

	if newMigrations > 0 {
		logging.Info().Int("count", newMigrations).Msg("Applied database migrations")
	}
	return nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration v%d: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, description, applied_at) VALUES (?, ?, ?, ?)`,
		m.Version, m.Name, m.Description, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
	}
	return nil
}

func (db *DB) createIndexes(ctx context.Context) error {
	for _, stmt := range indexes {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// GetCurrentSchemaVersion returns the highest applied migration version
func (db *DB) GetCurrentSchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var version int
	err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// GetMigrationHistory returns all applied migrations in order
func (db *DB) GetMigrationHistory(ctx context.Context) ([]Migration, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT version, name, COALESCE(description, ''), applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	defer rows.Close()

	var history []Migration
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.Description, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		history = append(history, m)
	}
	return history, rows.Err()
}
