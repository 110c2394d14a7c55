// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package routing

import "github.com/tomtom215/roadpulse/internal/models"

// codeOK is the OSRM status code of a usable response.
const codeOK = "Ok"

// Degraded reasons reported in SnapResult.Reason, logs and metrics.
const (
	ReasonTimeout     = "timeout"
	ReasonConnection  = "connection_error"
	ReasonHTTPStatus  = "http_status"
	ReasonDecode      = "decode_error"
	ReasonNoMatch     = "no_match"
	ReasonCircuitOpen = "circuit_open"
	ReasonCanceled    = "canceled"
)

// SnapResult is the outcome of SnapToRoad. When Snapped is false, Lat and
// Lon are the input coordinate and Segment is nil.
type SnapResult struct {
	Lat       float64
	Lon       float64
	Snapped   bool
	DistanceM float64
	Name      string
	Segment   *models.SegmentDescriptor
	Reason    string
}

// RouteInfo is the part of a zero-length route used to identify the
// matched edge.
type RouteInfo struct {
	// Nodes are the OSM node ids of the first leg, in travel order.
	Nodes []int64

	// Name and Bearing come from the first step and its first intersection.
	// HasIntersection is false when the step carried none.
	Name            string
	Bearing         *float64
	HasIntersection bool

	// Distance is the leg distance in meters.
	Distance float64
}

// NodePair returns the two nodes bounding the matched edge.
func (r *RouteInfo) NodePair() (a, b int64, ok bool) {
	if r == nil || len(r.Nodes) < 2 {
		return 0, 0, false
	}
	return r.Nodes[0], r.Nodes[1], true
}

// nearestResponse is the body of GET /nearest/v1/driving/{lon},{lat}.
type nearestResponse struct {
	Code      string     `json:"code"`
	Message   string     `json:"message,omitempty"`
	Waypoints []waypoint `json:"waypoints"`
}

type waypoint struct {
	Location []float64 `json:"location"` // [lon, lat]
	Distance float64   `json:"distance"`
	Name     string    `json:"name"`
}

// routeResponse is the body of GET /route/v1/driving/{lon},{lat};{lon},{lat}.
type routeResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message,omitempty"`
	Routes  []route `json:"routes"`
}

type route struct {
	Distance float64 `json:"distance"`
	Legs     []leg   `json:"legs"`
}

type leg struct {
	Distance   float64    `json:"distance"`
	Annotation annotation `json:"annotation"`
	Steps      []step     `json:"steps"`
}

type annotation struct {
	Nodes []int64 `json:"nodes"`
}

type step struct {
	Name          string         `json:"name"`
	Intersections []intersection `json:"intersections"`
}

type intersection struct {
	Bearings []float64 `json:"bearings"`
}
