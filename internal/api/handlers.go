// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package api

import (
	"context"
	"time"

	"github.com/tomtom215/roadpulse/internal/config"
	"github.com/tomtom215/roadpulse/internal/models"
	ws "github.com/tomtom215/roadpulse/internal/websocket"
)

// PositionStore is the read side of the position store.
type PositionStore interface {
	Ping(ctx context.Context) error
	LatestPosition(ctx context.Context, userID string) (*models.PositionRecord, error)
	LatestPositions(ctx context.Context, since time.Time, filter models.UserFilter) ([]models.PositionRecord, error)
	PositionsByDate(ctx context.Context, day time.Time, filter models.UserFilter) ([]models.PositionRecord, error)
	PositionsByDateRange(ctx context.Context, tr models.TimeRange, filter models.UserFilter) ([]models.PositionRecord, error)
	PositionsByGeofence(ctx context.Context, bounds models.GeoBounds, filter models.UserFilter, tr *models.TimeRange) ([]models.PositionRecord, error)
}

// CongestionDetector computes congested segments over a trailing window.
type CongestionDetector interface {
	Detect(ctx context.Context, windowSeconds int) ([]models.CongestionEntry, error)
}

// SegmentLookup reads the segment side cache.
type SegmentLookup interface {
	Lookup(ctx context.Context, id string) (*models.SegmentDescriptor, bool, error)
}

// RoutingProbe reports whether the routing engine answers.
type RoutingProbe interface {
	IsAvailable(ctx context.Context) bool
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_congestion.go: congestion
//   - handlers_positions.go: location, active devices and history
//   - handlers_segments.go: segment descriptors
//   - handlers_health.go: health, version and the websocket upgrade
type Handler struct {
	config    *config.Config
	store     PositionStore
	detector  CongestionDetector
	segments  SegmentLookup
	routing   RoutingProbe
	wsHub     *ws.Hub
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates an API handler. segments, routing and hub may be nil;
// the endpoints depending on them then report the component as unavailable.
func NewHandler(cfg *config.Config, store PositionStore, detector CongestionDetector, segments SegmentLookup, routing RoutingProbe, hub *ws.Hub) *Handler {
	return &Handler{
		config:    cfg,
		store:     store,
		detector:  detector,
		segments:  segments,
		routing:   routing,
		wsHub:     hub,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// SetClock replaces the time source used for windows and calendar dates.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}
