// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

/*
Package metrics provides Prometheus instrumentation for Roadpulse.

All collectors are registered on the default registry through promauto and
exposed by the HTTP server at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

Ingestion:
  - roadpulse_ingest_packets_total{outcome}: datagrams by pipeline outcome
    (stored, malformed, rejected, duplicate, rate_limited, persist_failed)
  - roadpulse_ingest_processing_duration_seconds: receive-to-persist latency

Routing:
  - roadpulse_snap_results_total{result,reason}: snapped vs degraded snaps
  - roadpulse_osrm_request_duration_seconds{service}: nearest/route latency
  - roadpulse_osrm_available: last health probe result (0/1)

Segments:
  - roadpulse_segment_resolutions_total{strategy}
  - roadpulse_cache_hits_total{cache}, roadpulse_cache_misses_total{cache}

Congestion:
  - roadpulse_congestion_segments: segments reported by the last detection
  - roadpulse_congestion_detect_duration_seconds

Database, API, WebSocket, NATS and circuit breaker collectors follow the
same naming.
*/
package metrics
