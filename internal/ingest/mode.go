// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package ingest

import (
	"fmt"
	"strings"

	"github.com/tomtom215/roadpulse/internal/config"
)

// Mode selects how the sender of a datagram is identified.
type Mode int

const (
	// ModeAuthenticated requires a bearer token on every packet and drops
	// packets whose token does not verify.
	ModeAuthenticated Mode = iota

	// ModeTrustedPlaintext accepts the DeviceID asserted by the sender when
	// no token is present. Anyone who can reach the port can impersonate any
	// device in this mode.
	ModeTrustedPlaintext
)

func (m Mode) String() string {
	switch m {
	case ModeAuthenticated:
		return config.IngestModeAuthenticated
	case ModeTrustedPlaintext:
		return config.IngestModeTrustedPlaintext
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a configuration value to a Mode. The empty string selects
// ModeAuthenticated.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", config.IngestModeAuthenticated:
		return ModeAuthenticated, nil
	case config.IngestModeTrustedPlaintext:
		return ModeTrustedPlaintext, nil
	default:
		return ModeAuthenticated, fmt.Errorf("unknown ingest mode %q", s)
	}
}
