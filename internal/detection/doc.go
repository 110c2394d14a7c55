// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package detection finds congested road segments.
//
// A segment is congested when at least two distinct vehicles have their most
// recent position inside a trailing time window on it:
//
//	positions (append-only)
//	    |  newest record per user since now-window, segment_id not null
//	    v
//	group by segment_id -> keep groups with >= 2 users -> centroid
//	    |
//	    v
//	[]CongestionEntry ordered by vehicle count, then segment id
//
// Detection is a pure read. It never writes and may run concurrently with
// ingestion; a vehicle's latest ping may not yet be visible, which only
// delays detection by one report interval.
package detection
