// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package models

import "time"

// UserFilter restricts a read query to one user or a set of users.
// UserIDs takes precedence over UserID when both are set.
type UserFilter struct {
	UserID  string
	UserIDs []string
}

// IDs returns the effective user restriction, or nil for no restriction.
func (f UserFilter) IDs() []string {
	if len(f.UserIDs) > 0 {
		return f.UserIDs
	}
	if f.UserID != "" {
		return []string{f.UserID}
	}
	return nil
}

// GeoBounds is an inclusive latitude/longitude box.
type GeoBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the coordinate lies inside the box.
func (b GeoBounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// TimeRange is an inclusive observation time interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}
