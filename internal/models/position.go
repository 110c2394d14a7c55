// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package models

import "time"

// TimestampLayout is the Go layout of PositionRecord.Timestamp.
const TimestampLayout = "02/01/2006 15:04:05"

// SourceUDP is the provenance tag used when the sender address is unknown.
const SourceUDP = "udp"

// PositionRecord is one observed vehicle position. Records are immutable
// once stored; ID is assigned by the store.
type PositionRecord struct {
	ID        int64   `json:"id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp string  `json:"timestamp"`
	Source    string  `json:"source"`
	UserID    *string `json:"user_id"`

	SegmentID     *string  `json:"segment_id"`
	StreetName    *string  `json:"street_name"`
	SegmentLength *float64 `json:"segment_length"`
	Bearing       *float64 `json:"bearing"`
}

// ObservedAt parses Timestamp. The second return value is false when the
// stored text does not match TimestampLayout.
func (p *PositionRecord) ObservedAt() (time.Time, bool) {
	t, err := time.Parse(TimestampLayout, p.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AttachSegment copies the descriptor columns onto the record.
// A nil descriptor clears them.
func (p *PositionRecord) AttachSegment(seg *SegmentDescriptor) {
	if seg == nil {
		p.SegmentID, p.StreetName, p.SegmentLength, p.Bearing = nil, nil, nil, nil
		return
	}
	p.SegmentID = StringPtr(seg.SegmentID)
	p.StreetName = nil
	if seg.StreetName != "" {
		p.StreetName = StringPtr(seg.StreetName)
	}
	p.SegmentLength = seg.Length
	p.Bearing = seg.Bearing
}

// Segment strategies recorded on SegmentDescriptor.Strategy.
const (
	StrategyNodePair   = "node_pair"
	StrategyCoordinate = "coordinate"
)

// SegmentDescriptor identifies the road segment nearest a snapped coordinate.
//
// SegmentID is a one-way hash: nothing maps it back to geometry, so the
// descriptor cache keeps the last snapped coordinate that produced it.
type SegmentDescriptor struct {
	SegmentID  string   `json:"segment_id"`
	StreetName string   `json:"street_name"`
	Length     *float64 `json:"length"`
	Bearing    *float64 `json:"bearing"`

	// NodeKey is the normalized "min-max" node pair that was hashed.
	// Empty for coordinate-derived ids.
	NodeKey  string `json:"node_key,omitempty"`
	Strategy string `json:"strategy"`

	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// User is a row of the local identity store.
type User struct {
	ID          string    `json:"id"`
	ExternalUID string    `json:"external_uid"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 {
	return &f
}
