// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package main

import (
	"fmt"

	"github.com/tomtom215/roadpulse/internal/auth"
	"github.com/tomtom215/roadpulse/internal/config"
	"github.com/tomtom215/roadpulse/internal/ingest"
	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/segment"
)

// initSegmentCache builds the descriptor side cache: memory only, or memory
// in front of Badger when a store path is configured. The returned func
// releases the Badger store.
func initSegmentCache(cfg *config.SegmentConfig) (segment.Cache, func(), error) {
	memory := segment.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
	if cfg.StorePath == "" {
		logging.Info().Int("size", cfg.CacheSize).Msg("Segment cache in memory only")
		return memory, func() {}, nil
	}

	store, err := segment.OpenBadgerCache(cfg.StorePath, cfg.CacheTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("open segment store: %w", err)
	}
	tiered := segment.NewTieredCache(memory, store)
	logging.Info().Str("path", cfg.StorePath).Msg("Segment cache backed by Badger")

	return tiered, func() {
		if err := tiered.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing segment store")
		}
	}, nil
}

// initVerifier returns nil when no secret is configured, which config
// validation only allows in trusted_plaintext mode.
func initVerifier(cfg *config.Config, users auth.UserResolver) (ingest.Verifier, error) {
	if cfg.Security.JWTSecret == "" {
		logging.Warn().Msg("JWT_SECRET not set: datagrams carrying a Token will be rejected")
		return nil, nil
	}
	v, err := auth.NewVerifier(&cfg.Security, users)
	if err != nil {
		return nil, fmt.Errorf("initialize credential verifier: %w", err)
	}
	logging.Info().Str("issuer", cfg.Security.JWTIssuer).Msg("Credential verification enabled")
	return v, nil
}

func warnInsecureSettings(cfg *config.Config) {
	if cfg.IsTrustedPlaintext() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: INGEST_MODE=trusted_plaintext")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  DeviceID values are trusted as user ids without proof.")
		logging.Warn().Msg("  Use only on an isolated network with trusted senders.")
		logging.Warn().Msg("============================================================")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); set explicit origins in production")
	}
}
