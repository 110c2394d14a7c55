// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package eventprocessor publishes stored positions to NATS.
//
// The Publisher is an ingestion sink: after the UDP listener appends a
// record, the record is wrapped in a models.PositionEvent, encoded as JSON
// and published through Watermill on the configured subject
// (default roadpulse.positions).
//
//	┌──────────────┐  Publish   ┌──────────────┐  core NATS   ┌─────────────┐
//	│ UDP Listener │ ─────────▶ │  Publisher   │ ───────────▶ │ subscribers │
//	└──────────────┘            │ (breaker)    │              └─────────────┘
//	                            └──────────────┘
//
// Publishing is fire-and-forget: JetStream is not used, so subscribers that
// are offline miss events. DuckDB remains the system of record.
//
// # Circuit Breaker
//
// Publishes run through a gobreaker circuit breaker. After consecutive
// failures the breaker opens and further publishes fail fast with
// gobreaker.ErrOpenState; the listener logs and counts the failure and
// keeps ingesting.
//
// # Embedded Server
//
// For single-node deployments EmbeddedServer runs nats-server in process.
// It implements suture.Service so the supervisor shuts it down with the
// rest of the tree.
//
// # Message Format
//
//	{
//	  "event_id": "6f1c...",
//	  "type": "position",
//	  "position": { "id": 42, "lat": 11.0041, "lon": -74.807, ... },
//	  "stored_at": "2026-03-02T12:00:00Z"
//	}
//
// Metadata carries source, user_id and segment_id when present.
package eventprocessor
