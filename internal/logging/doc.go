// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package logging provides zerolog-based structured logging for Roadpulse.
//
// Every component logs through the global logger configured here: JSON for
// production, console output for development.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("source", addr).Msg("Datagram stored")
//	logging.Error().Err(err).Msg("Append failed")
//
//	// Correlation and request IDs travel in the context
//	logging.Ctx(ctx).Warn().Msg("Snap degraded")
//
// # Configuration
//
// The logging section of the application config maps onto Config:
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// # Component Loggers
//
//	ingestLog := logging.WithComponent("ingest")
//
// # Adapters
//
// Libraries that bring their own logger interface are bridged onto the
// same pipeline:
//
//   - NewSlogLogger: slog.Logger for the suture supervisor tree
//   - NewWatermillLogger: watermill.LoggerAdapter for the NATS publisher
//
// # Security Logging
//
// SecurityLogger records credential decisions made by the UDP listener.
// Tokens are masked to their first and last four characters; rejected
// credentials log at WARN with a bounded reason.
//
//	sec := logging.NewSecurityLogger()
//	sec.LogCredentialRejected(ctx, source, "expired", token)
//
// # Testing
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
//
// The global level still applies to test loggers.
package logging
