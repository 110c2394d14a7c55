// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/metrics"
	"github.com/tomtom215/roadpulse/internal/models"
)

// MinVehicles is the congestion threshold. It is not configurable.
const MinVehicles = 2

// DefaultWindowSeconds is the window used when a caller does not pass one.
const DefaultWindowSeconds = 300

// ErrInvalidWindow is returned for a non-positive window.
var ErrInvalidWindow = errors.New("window must be a positive number of seconds")

// PositionSource returns, per user, the newest record observed at or after
// since that carries a segment id.
type PositionSource interface {
	LatestSegmentPositions(ctx context.Context, since time.Time) ([]models.PositionRecord, error)
}

// Detector computes congestion from the position store.
type Detector struct {
	source PositionSource
	now    func() time.Time
}

// NewDetector creates a detector reading from source.
func NewDetector(source PositionSource) *Detector {
	return &Detector{source: source, now: time.Now}
}

// SetClock replaces the time source. Intended for tests.
func (d *Detector) SetClock(now func() time.Time) {
	d.now = now
}

// Detect returns the segments occupied by MinVehicles or more distinct users
// within the trailing windowSeconds, most congested first.
func (d *Detector) Detect(ctx context.Context, windowSeconds int) ([]models.CongestionEntry, error) {
	if windowSeconds <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, windowSeconds)
	}

	start := time.Now()
	since := d.now().Add(-time.Duration(windowSeconds) * time.Second)

	records, err := d.source.LatestSegmentPositions(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load latest positions: %w", err)
	}

	entries := Group(latestPerUser(records))
	metrics.RecordCongestionDetect(len(entries), time.Since(start))

	logging.Ctx(ctx).Debug().
		Int("window_seconds", windowSeconds).
		Int("positions", len(records)).
		Int("segments", len(entries)).
		Msg("Congestion detection completed")

	return entries, nil
}

// latestPerUser keeps one record per user, the newest by observation time
// and then by id. Records without a user or segment are dropped.
func latestPerUser(records []models.PositionRecord) []models.PositionRecord {
	type candidate struct {
		rec models.PositionRecord
		at  time.Time
	}
	byUser := make(map[string]candidate, len(records))
	order := make([]string, 0, len(records))

	for _, rec := range records {
		if rec.UserID == nil || rec.SegmentID == nil {
			continue
		}
		at, _ := rec.ObservedAt()
		cur, seen := byUser[*rec.UserID]
		if !seen {
			order = append(order, *rec.UserID)
		}
		if !seen || at.After(cur.at) || (at.Equal(cur.at) && rec.ID > cur.rec.ID) {
			byUser[*rec.UserID] = candidate{rec: rec, at: at}
		}
	}

	out := make([]models.PositionRecord, 0, len(order))
	for _, user := range order {
		out = append(out, byUser[user].rec)
	}
	return out
}

// Group buckets one-record-per-user positions by segment and returns the
// buckets holding at least MinVehicles users, ordered by vehicle count
// descending and segment id ascending.
func Group(records []models.PositionRecord) []models.CongestionEntry {
	groups := make(map[string]*models.CongestionEntry)
	seen := make(map[string]map[string]bool)

	for _, rec := range records {
		if rec.UserID == nil || rec.SegmentID == nil {
			continue
		}
		segID, userID := *rec.SegmentID, *rec.UserID

		g, ok := groups[segID]
		if !ok {
			g = &models.CongestionEntry{SegmentID: segID}
			groups[segID] = g
			seen[segID] = make(map[string]bool)
		}
		if seen[segID][userID] {
			continue
		}
		seen[segID][userID] = true

		if g.StreetName == "" && rec.StreetName != nil {
			g.StreetName = *rec.StreetName
		}
		g.VehicleIDs = append(g.VehicleIDs, userID)
		g.Positions = append(g.Positions, models.VehiclePosition{
			UserID:    userID,
			Lat:       rec.Lat,
			Lon:       rec.Lon,
			Timestamp: rec.Timestamp,
		})
	}

	entries := make([]models.CongestionEntry, 0, len(groups))
	for _, g := range groups {
		if len(g.VehicleIDs) < MinVehicles {
			continue
		}
		g.VehicleCount = len(g.VehicleIDs)
		g.CenterLat, g.CenterLon = centroid(g.Positions)
		sort.Strings(g.VehicleIDs)
		sort.Slice(g.Positions, func(i, j int) bool { return g.Positions[i].UserID < g.Positions[j].UserID })
		entries = append(entries, *g)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].VehicleCount != entries[j].VehicleCount {
			return entries[i].VehicleCount > entries[j].VehicleCount
		}
		return entries[i].SegmentID < entries[j].SegmentID
	})
	return entries
}

// centroid is the arithmetic mean of the positions. Segments are short
// enough that the planar mean is accurate.
func centroid(positions []models.VehiclePosition) (lat, lon float64) {
	if len(positions) == 0 {
		return 0, 0
	}
	for _, p := range positions {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(positions))
	return lat / n, lon / n
}
