// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/roadpulse/internal/metrics"
	"github.com/tomtom215/roadpulse/internal/models"
)

// ResolveExternalUser maps an identity-provider subject to the local user id.
// It returns ErrNotFound when the subject has no local user.
func (db *DB) ResolveExternalUser(ctx context.Context, externalUID string) (string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var id int64
	err := db.conn.QueryRowContext(ctx, `SELECT id FROM users WHERE external_uid = ?`, externalUID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("resolve", "users", time.Since(start), nil)
		return "", ErrNotFound
	}
	metrics.RecordDBQuery("resolve", "users", time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("failed to resolve external user: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// CreateUser inserts a local user for externalUID. Creating an existing
// subject returns the stored user unchanged.
func (db *DB) CreateUser(ctx context.Context, externalUID, displayName string) (*models.User, error) {
	if strings.TrimSpace(externalUID) == "" {
		return nil, fmt.Errorf("external uid is required")
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if existing, err := db.GetUserByExternalUID(ctx, externalUID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	var id int64
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (external_uid, display_name, created_at) VALUES (?, ?, ?) RETURNING id`,
		externalUID, displayName, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.User{
		ID:          strconv.FormatInt(id, 10),
		ExternalUID: externalUID,
		DisplayName: displayName,
		CreatedAt:   now,
	}, nil
}

// GetUserByExternalUID returns the local user for externalUID, or ErrNotFound.
func (db *DB) GetUserByExternalUID(ctx context.Context, externalUID string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		u    models.User
		id   int64
		name sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, external_uid, display_name, created_at FROM users WHERE external_uid = ?`,
		externalUID).Scan(&id, &u.ExternalUID, &name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.ID = strconv.FormatInt(id, 10)
	u.DisplayName = name.String
	return &u, nil
}
