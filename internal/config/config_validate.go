// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package config

import (
	"fmt"

	"github.com/tomtom215/roadpulse/internal/validation"
)

// MinJWTSecretLength is the minimum HS256 secret length.
const MinJWTSecretLength = 32

// Validate checks field ranges and cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}

	if err := c.validateRouting(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateNATS()
}

func (c *Config) validateRouting() error {
	if err := validateHTTPURL(c.Routing.URL, "OSRM_URL"); err != nil {
		return fmt.Errorf("OSRM_URL is invalid: %w", err)
	}
	return nil
}

// validateSecurity requires a signing secret whenever tokens may be verified.
// Trusted plaintext mode still verifies tokens that are present, so the
// secret is only optional when it is entirely absent in that mode.
func (c *Config) validateSecurity() error {
	secret := c.Security.JWTSecret
	switch {
	case c.Ingest.Mode == IngestModeAuthenticated && secret == "":
		return fmt.Errorf("JWT_SECRET is required when INGEST_MODE=%s", IngestModeAuthenticated)
	case secret != "" && len(secret) < MinJWTSecretLength:
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled || c.NATS.EmbeddedServer {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	return nil
}
