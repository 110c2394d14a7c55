// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package api

import (
	"time"
)

// Query defaults
const (
	defaultCongestionWindow = 300
	defaultActiveWindow     = 120
	defaultStartClock       = "00:00"
	defaultEndClock         = "23:59"

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// CongestionRequest holds GET /api/congestion parameters.
type CongestionRequest struct {
	TimeWindow int `query:"time_window" validate:"min=1,max=86400"`
}

// ActiveDevicesRequest holds GET /api/devices/active parameters.
type ActiveDevicesRequest struct {
	Window int `query:"window" validate:"min=1,max=86400"`
}

// LocationRequest holds the GET /api/location/{userId} path parameter.
type LocationRequest struct {
	UserID string `query:"user_id" validate:"required,max=128"`
}

// HistoryDateRequest holds the GET /api/history/{date} path parameter.
type HistoryDateRequest struct {
	Date string `query:"date" validate:"required,isodate"`
}

// HistoryRangeRequest holds GET /api/history/range parameters. Missing
// clock values default to the start and end of the day.
type HistoryRangeRequest struct {
	Start     string `query:"start" validate:"required,isodate"`
	StartTime string `query:"start_time" validate:"required,clock"`
	End       string `query:"end" validate:"required,isodate"`
	EndTime   string `query:"end_time" validate:"required,clock"`
}

// Bounds returns the inclusive range. The end minute is inclusive up to
// second 59.
func (req HistoryRangeRequest) Bounds(loc *time.Location) (start, end time.Time, err error) {
	start, err = time.ParseInLocation(dateLayout+" "+clockLayout, req.Start+" "+req.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = time.ParseInLocation(dateLayout+" "+clockLayout, req.End+" "+req.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end.Add(59 * time.Second), nil
}

// GeofenceRequest holds GET /api/history/geofence parameters. Start and
// End are optional calendar days and must be given together.
type GeofenceRequest struct {
	MinLat *float64 `query:"min_lat" validate:"required,latitude"`
	MaxLat *float64 `query:"max_lat" validate:"required,latitude"`
	MinLon *float64 `query:"min_lon" validate:"required,longitude"`
	MaxLon *float64 `query:"max_lon" validate:"required,longitude"`
	Start  string   `query:"start" validate:"omitempty,isodate"`
	End    string   `query:"end" validate:"omitempty,isodate"`
}

// SegmentRequest holds the GET /api/segments/{segmentId} path parameter.
type SegmentRequest struct {
	SegmentID string `query:"segment_id" validate:"segmentid"`
}
