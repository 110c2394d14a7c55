// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/tomtom215/roadpulse/internal/config"
)

// PublisherConfig holds settings for the NATS publisher.
type PublisherConfig struct {
	URL     string
	Subject string

	// Reconnection
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int

	Breaker CircuitBreakerConfig
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// ServerConfig holds embedded NATS server settings. Port -1 picks a free port.
type ServerConfig struct {
	Host string
	Port int
}

// DefaultPublisherConfig returns publisher defaults.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		URL:             "nats://127.0.0.1:4222",
		Subject:         "roadpulse.positions",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
		Breaker:         DefaultCircuitBreakerConfig(),
	}
}

// DefaultCircuitBreakerConfig returns breaker defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "nats-publisher",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// PublisherConfigFrom derives publisher settings from the application config.
// url overrides cfg.URL when non-empty, e.g. with an embedded server's address.
func PublisherConfigFrom(cfg *config.NATSConfig, url string) PublisherConfig {
	pc := DefaultPublisherConfig()
	pc.URL = cfg.URL
	if url != "" {
		pc.URL = url
	}
	if cfg.Subject != "" {
		pc.Subject = cfg.Subject
	}
	return pc
}

// Validate checks the publisher configuration.
func (c *PublisherConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidConfig)
	}
	if c.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidConfig)
	}
	if c.Breaker.FailureThreshold == 0 {
		return fmt.Errorf("%w: breaker failure threshold must be positive", ErrInvalidConfig)
	}
	return nil
}

// ServerConfigFrom derives embedded server settings from the application config.
func ServerConfigFrom(cfg *config.NATSConfig) ServerConfig {
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return ServerConfig{Host: host, Port: cfg.Port}
}
