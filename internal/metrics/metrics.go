// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcomes.
const (
	OutcomeStored        = "stored"
	OutcomeMalformed     = "malformed"
	OutcomeRejected      = "rejected"
	OutcomeDuplicate     = "duplicate"
	OutcomeRateLimited   = "rate_limited"
	OutcomePersistFailed = "persist_failed"
)

var (
	// Ingestion Metrics
	IngestPackets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_ingest_packets_total",
			Help: "Total number of datagrams by pipeline outcome",
		},
		[]string{"outcome"},
	)

	IngestProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roadpulse_ingest_processing_duration_seconds",
			Help:    "Time from datagram receipt to pipeline completion",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	IngestSinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_ingest_sink_errors_total",
			Help: "Total number of failures handing stored records to sinks",
		},
		[]string{"sink"},
	)

	// Routing Metrics
	SnapResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_snap_results_total",
			Help: "Snap-to-road outcomes (snapped or degraded) by reason",
		},
		[]string{"result", "reason"},
	)

	OSRMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roadpulse_osrm_request_duration_seconds",
			Help:    "Duration of OSRM HTTP requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"service"},
	)

	OSRMAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadpulse_osrm_available",
			Help: "Result of the last OSRM health probe (1=available)",
		},
	)

	// Segment Metrics
	SegmentResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_segment_resolutions_total",
			Help: "Segment ids derived, by strategy",
		},
		[]string{"strategy"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"cache"},
	)

	// Congestion Metrics
	CongestionSegments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadpulse_congestion_segments",
			Help: "Number of congested segments reported by the last detection",
		},
	)

	CongestionDetectDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roadpulse_congestion_detect_duration_seconds",
			Help:    "Duration of congestion detection",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roadpulse_duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roadpulse_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadpulse_api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadpulse_websocket_connections",
			Help: "Current number of WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roadpulse_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// NATS Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roadpulse_nats_messages_published_total",
			Help: "Total number of position events published to NATS",
		},
	)

	NATSPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roadpulse_nats_publish_errors_total",
			Help: "Total number of failed NATS publishes",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "roadpulse_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "roadpulse_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version", "ingest_mode"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roadpulse_app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordIngest records one datagram outcome and its processing time.
func RecordIngest(outcome string, duration time.Duration) {
	IngestPackets.WithLabelValues(outcome).Inc()
	IngestProcessingDuration.Observe(duration.Seconds())
}

// RecordSnap records a snap-to-road result. reason is empty for snapped results.
func RecordSnap(snapped bool, reason string) {
	result := "snapped"
	if !snapped {
		result = "degraded"
	}
	if reason == "" {
		reason = "none"
	}
	SnapResults.WithLabelValues(result, reason).Inc()
}

// RecordOSRMRequest records the latency of one OSRM call.
func RecordOSRMRequest(service string, duration time.Duration) {
	OSRMRequestDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// SetOSRMAvailable records the last health probe result.
func SetOSRMAvailable(ok bool) {
	if ok {
		OSRMAvailable.Set(1)
		return
	}
	OSRMAvailable.Set(0)
}

// RecordCacheLookup records a hit or miss for the named cache.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
		return
	}
	CacheMisses.WithLabelValues(cache).Inc()
}

// RecordCongestionDetect records one detection run.
func RecordCongestionDetect(segments int, duration time.Duration) {
	CongestionSegments.Set(float64(segments))
	CongestionDetectDuration.Observe(duration.Seconds())
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table, classifyError(err)).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordNATSPublish records the outcome of one publish.
func RecordNATSPublish(err error) {
	if err != nil {
		NATSPublishErrors.Inc()
		return
	}
	NATSMessagesPublished.Inc()
}

// classifyError maps an error to a bounded label value.
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "constraint"):
		return "constraint"
	case strings.Contains(msg, "conflict"):
		return "conflict"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "closed"):
		return "connection"
	default:
		return "other"
	}
}
