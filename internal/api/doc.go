// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

/*
Package api implements the HTTP query API on the chi router.

The API is read-only. Positions enter the system over UDP only; every
endpoint here reads the append-only position store, the congestion
detector or the segment side cache.

Endpoints:

	GET /api/congestion?time_window=300      congested segments
	GET /api/location/{userId}               latest position of one user
	GET /api/devices/active?window=120       latest position per active user
	GET /api/history/{date}                  positions on one day (YYYY-MM-DD)
	GET /api/history/range                   positions between two instants
	GET /api/history/geofence                positions inside a bounding box
	GET /api/segments/{segmentId}            cached segment descriptor
	GET /api/ws                              live position stream
	GET /health                              database and routing status
	GET /version                             build information
	GET /metrics                             Prometheus exposition

Responses use the models.APIResponse envelope:

	{"success": true, "data": [...], "metadata": {"timestamp": "...", "count": 3}}

except /api/congestion, which keeps its flat shape:

	{"success": true, "congestion": [...], "total": 1, "time_window": 300}

Failures always use the envelope with an error code: VALIDATION_ERROR (400),
NOT_FOUND (404), RATE_LIMIT_EXCEEDED (429), DATABASE_ERROR or
INTERNAL_ERROR (500).

Middleware order (outermost first): request id with logging context, real IP,
panic recovery, CORS, then per group rate limiting, security headers,
compression and Prometheus instrumentation.
*/
package api
