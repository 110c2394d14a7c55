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
	"time"

	"github.com/tomtom215/roadpulse/internal/database/query"
	"github.com/tomtom215/roadpulse/internal/metrics"
	"github.com/tomtom215/roadpulse/internal/models"
)

const positionColumns = `id, lat, lon, "timestamp", source, user_id, segment_id, street_name, segment_length, bearing`

// latestPerUser keeps the newest row of each user among the rows that
// already passed the WHERE clause.
const latestPerUser = `QUALIFY ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY ` + query.ObservedAtExpr + ` DESC, id DESC) = 1`

// AppendPosition stores rec and sets rec.ID to the assigned id.
func (db *DB) AppendPosition(ctx context.Context, rec *models.PositionRecord) (int64, error) {
	if rec.Timestamp == "" || rec.Source == "" {
		return 0, fmt.Errorf("%w: timestamp and source are required", ErrInvalidRecord)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var id int64
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO positions (lat, lon, "timestamp", source, user_id, segment_id, street_name, segment_length, bearing)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		rec.Lat, rec.Lon, rec.Timestamp, rec.Source,
		nullableString(rec.UserID), nullableString(rec.SegmentID), nullableString(rec.StreetName),
		nullableFloat(rec.SegmentLength), nullableFloat(rec.Bearing),
	).Scan(&id)
	metrics.RecordDBQuery("insert", "positions", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to append position: %w", err)
	}

	rec.ID = id
	return id, nil
}

// LatestPosition returns the most recently stored record of userID, or ErrNotFound.
func (db *DB) LatestPosition(ctx context.Context, userID string) (*models.PositionRecord, error) {
	records, err := db.queryPositions(ctx, "latest", `
		SELECT `+positionColumns+`
		FROM positions
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT 1`, userID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// LatestPositions returns the newest record per user observed at or after since.
// Records without a user are not attributable to a device and are skipped.
func (db *DB) LatestPositions(ctx context.Context, since time.Time, filter models.UserFilter) ([]models.PositionRecord, error) {
	where, args := query.NewWhereBuilder().
		AddNotNull("user_id").
		AddObservedSince(since).
		AddUsers(filter.IDs()).
		BuildWithPrefix()

	args = append(args, db.queryLimit)
	return db.queryPositions(ctx, "latest_all", `
		SELECT `+positionColumns+`
		FROM positions
		`+where+`
		`+latestPerUser+`
		ORDER BY user_id
		LIMIT ?`, args...)
}

// LatestSegmentPositions returns, per user, the newest record observed at or
// after since that carries a segment id. This is the congestion input.
func (db *DB) LatestSegmentPositions(ctx context.Context, since time.Time) ([]models.PositionRecord, error) {
	where, args := query.NewWhereBuilder().
		AddNotNull("user_id").
		AddNotNull("segment_id").
		AddObservedSince(since).
		BuildWithPrefix()

	args = append(args, db.queryLimit)
	return db.queryPositions(ctx, "latest_segment", `
		SELECT `+positionColumns+`
		FROM positions
		`+where+`
		`+latestPerUser+`
		ORDER BY segment_id, user_id
		LIMIT ?`, args...)
}

// PositionsByDateRange returns records observed within the inclusive range,
// oldest first.
func (db *DB) PositionsByDateRange(ctx context.Context, tr models.TimeRange, filter models.UserFilter) ([]models.PositionRecord, error) {
	where, args := query.NewWhereBuilder().
		AddObservedRange(tr.Start, tr.End).
		AddUsers(filter.IDs()).
		BuildWithPrefix()

	return db.orderedPositions(ctx, "by_range", where, args)
}

// PositionsByDate returns every record observed on the calendar day of day.
func (db *DB) PositionsByDate(ctx context.Context, day time.Time, filter models.UserFilter) ([]models.PositionRecord, error) {
	return db.PositionsByDateRange(ctx, DayRange(day), filter)
}

// PositionsByGeofence returns records inside bounds, optionally restricted
// to a time range.
func (db *DB) PositionsByGeofence(ctx context.Context, bounds models.GeoBounds, filter models.UserFilter, tr *models.TimeRange) ([]models.PositionRecord, error) {
	wb := query.NewWhereBuilder().
		AddBounds(bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon).
		AddUsers(filter.IDs())
	if tr != nil {
		wb.AddObservedRange(tr.Start, tr.End)
	}
	where, args := wb.BuildWithPrefix()

	return db.orderedPositions(ctx, "by_geofence", where, args)
}

// CountPositions returns the number of stored records.
func (db *DB) CountPositions(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var n int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM positions`).Scan(&n)
	metrics.RecordDBQuery("count", "positions", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to count positions: %w", err)
	}
	return n, nil
}

// DayRange spans day from 00:00:00 to 23:59:59 in day's location.
func DayRange(day time.Time) models.TimeRange {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return models.TimeRange{Start: start, End: start.Add(24*time.Hour - time.Second)}
}

func (db *DB) orderedPositions(ctx context.Context, op, where string, args []interface{}) ([]models.PositionRecord, error) {
	args = append(args, db.queryLimit)
	return db.queryPositions(ctx, op, `
		SELECT `+positionColumns+`
		FROM positions
		`+where+`
		ORDER BY `+query.ObservedAtExpr+`, id
		LIMIT ?`, args...)
}

func (db *DB) queryPositions(ctx context.Context, op, q string, args ...interface{}) ([]models.PositionRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	records, err := db.scanPositions(ctx, q, args...)
	metrics.RecordDBQuery(op, "positions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions (%s): %w", op, err)
	}
	return records, nil
}

func (db *DB) scanPositions(ctx context.Context, q string, args ...interface{}) ([]models.PositionRecord, error) {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(rows, "rows")

	records := make([]models.PositionRecord, 0)
	for rows.Next() {
		rec, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (models.PositionRecord, error) {
	var (
		rec                       models.PositionRecord
		userID, segmentID, street sql.NullString
		segmentLength, bearing    sql.NullFloat64
	)
	if err := row.Scan(&rec.ID, &rec.Lat, &rec.Lon, &rec.Timestamp, &rec.Source,
		&userID, &segmentID, &street, &segmentLength, &bearing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("failed to scan position: %w", err)
	}
	rec.UserID = stringPtr(userID)
	rec.SegmentID = stringPtr(segmentID)
	rec.StreetName = stringPtr(street)
	rec.SegmentLength = floatPtr(segmentLength)
	rec.Bearing = floatPtr(bearing)
	return rec, nil
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}
