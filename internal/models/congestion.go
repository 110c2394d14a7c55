// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package models

// VehiclePosition is one vehicle's contribution to a congestion centroid.
type VehiclePosition struct {
	UserID    string  `json:"user_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp string  `json:"timestamp"`
}

// CongestionEntry is a segment currently occupied by two or more vehicles.
// It is computed on demand and never stored.
type CongestionEntry struct {
	SegmentID    string            `json:"segment_id"`
	StreetName   string            `json:"street_name"`
	VehicleCount int               `json:"vehicle_count"`
	VehicleIDs   []string          `json:"vehicle_ids"`
	CenterLat    float64           `json:"center_lat"`
	CenterLon    float64           `json:"center_lon"`
	Positions    []VehiclePosition `json:"positions"`
}
