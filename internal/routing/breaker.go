// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package routing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/metrics"
)

// RequestError describes a failed OSRM call.
type RequestError struct {
	Service string
	Reason  string
	Status  int
	Err     error
}

func (e *RequestError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("osrm %s: %s (status %d)", e.Service, e.Reason, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("osrm %s: %s: %v", e.Service, e.Reason, e.Err)
	default:
		return fmt.Sprintf("osrm %s: %s", e.Service, e.Reason)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// unhealthy reports whether the failure counts against the circuit.
// A no-match answer or a 4xx means the engine is up.
func (e *RequestError) unhealthy() bool {
	switch e.Reason {
	case ReasonTimeout, ReasonConnection:
		return true
	case ReasonHTTPStatus:
		return e.Status >= 500
	default:
		return false
	}
}

// ReasonOf maps an error from Route or the breaker to a degraded reason.
func ReasonOf(err error) string {
	var reqErr *RequestError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ReasonCircuitOpen
	case errors.As(err, &reqErr):
		return reqErr.Reason
	default:
		return ReasonConnection
	}
}

func classifyTransport(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	default:
		return ReasonConnection
	}
}

// isSuccessful tells the breaker which errors are engine failures.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return !reqErr.unhealthy()
	}
	return false
}

func newBreaker(name string, maxFailures uint32, interval, timeout time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:         name,
		MaxRequests:  1,
		Interval:     interval,
		Timeout:      timeout,
		IsSuccessful: isSuccessful,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures < maxFailures {
				return false
			}
			logging.Warn().
				Str("breaker", name).
				Uint32("consecutive_failures", counts.ConsecutiveFailures).
				Msg("[CIRCUIT BREAKER] Opening circuit")
			return true
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})
}

func recordBreakerResult(name string, err error) {
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(name, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(name, "failure").Inc()
	}
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
