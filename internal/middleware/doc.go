// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

/*
Package middleware provides HTTP instrumentation for the query API.

PrometheusMetrics records request count, latency and in-flight requests for
every API call. Requests are labelled with the chi route pattern
(for example /api/location/{userId}) rather than the raw path so that user
ids and dates do not create unbounded label cardinality:

	r.Route("/api", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    r.Get("/location/{userId}", h.Location)
	})

Compression, request ids and panic recovery come from chi's own middleware
package and are installed by the router.
*/
package middleware
