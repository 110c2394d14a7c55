// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package models

import (
	"time"

	"github.com/google/uuid"
)

// APIResponse is the envelope used by every JSON endpoint except
// /api/congestion, which keeps its flat {success, congestion, total} shape.
//
// Example error response:
//
//	{
//	  "success": false,
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "time_window must be at least 1",
//	    "details": {"field": "time_window"}
//	  },
//	  "metadata": {"timestamp": "2026-03-02T12:00:00Z"}
//	}
type APIResponse struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing and result counts.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       *int      `json:"count,omitempty"`
}

// APIError is the structured failure payload.
//
// Codes: VALIDATION_ERROR, NOT_FOUND, DATABASE_ERROR, INTERNAL_ERROR,
// RATE_LIMIT_EXCEEDED.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CongestionResponse is the body of GET /api/congestion.
type CongestionResponse struct {
	Success    bool              `json:"success"`
	Congestion []CongestionEntry `json:"congestion"`
	Total      int               `json:"total"`
	TimeWindow int               `json:"time_window"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status      string    `json:"status"`
	App         string    `json:"app"`
	IngestMode  string    `json:"ingest_mode"`
	Database    bool      `json:"database"`
	OSRM        bool      `json:"osrm"`
	SnapToRoads bool      `json:"snap_to_roads"`
	Uptime      float64   `json:"uptime_seconds"`
	Timestamp   time.Time `json:"timestamp"`
}

// VersionInfo is the body of GET /version.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// PositionEvent is the message pushed to websocket clients and NATS
// subscribers for every stored record.
type PositionEvent struct {
	EventID  string         `json:"event_id"`
	Type     string         `json:"type"`
	Position PositionRecord `json:"position"`
	StoredAt time.Time      `json:"stored_at"`
}

// EventTypePosition is the type of every PositionEvent.
const EventTypePosition = "position"

// NewPositionEvent wraps a stored record with a fresh event id.
func NewPositionEvent(rec *PositionRecord, storedAt time.Time) PositionEvent {
	return PositionEvent{
		EventID:  uuid.NewString(),
		Type:     EventTypePosition,
		Position: *rec,
		StoredAt: storedAt.UTC(),
	}
}
