// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenVerifications counts Verify calls.
	// Labels:
	//   - outcome: "accepted", "malformed", "invalid", "expired",
	//     "unknown_subject", "store_error"
	TokenVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadpulse_auth_token_verifications_total",
			Help: "Total number of bearer token verifications by outcome",
		},
		[]string{"outcome"},
	)
)

func recordVerification(err error) {
	outcome := "accepted"
	if err != nil {
		outcome = RejectReason(err)
	}
	TokenVerifications.WithLabelValues(outcome).Inc()
}
