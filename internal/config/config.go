// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

// Package config loads Roadpulse configuration with Koanf v2.
//
// Sources, lowest to highest priority:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH or the default search paths)
//  3. Environment variables, including a .env file in the working directory
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"time"
)

// Ingestion modes accepted by ingest.mode.
const (
	IngestModeAuthenticated    = "authenticated"
	IngestModeTrustedPlaintext = "trusted_plaintext"
)

// Config is the root configuration.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Server   ServerConfig   `koanf:"server"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Routing  RoutingConfig  `koanf:"routing"`
	Segment  SegmentConfig  `koanf:"segment"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	NATS     NATSConfig     `koanf:"nats"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// AppConfig identifies the deployment in /health and /version.
type AppConfig struct {
	Name        string `koanf:"name" validate:"required"`
	Environment string `koanf:"environment" validate:"oneof=development production test"`
}

// ServerConfig configures the HTTP query API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// IngestConfig configures the UDP ingestion listener.
type IngestConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	// Mode is authenticated (default) or trusted_plaintext. The latter trusts
	// the DeviceID sent by the device and therefore accepts spoofed identities.
	Mode string `koanf:"mode" validate:"oneof=authenticated trusted_plaintext"`

	MaxPacketSize int `koanf:"max_packet_size" validate:"min=64,max=65507"`

	// DedupWindow is how long an identical datagram from the same source is
	// treated as a retransmission. Zero disables duplicate suppression.
	DedupWindow   time.Duration `koanf:"dedup_window" validate:"gte=0"`
	DedupCapacity int           `koanf:"dedup_capacity" validate:"min=1"`

	// RateLimitPerSecond is the sustained packet rate allowed per source IP.
	// Zero disables the limiter.
	RateLimitPerSecond float64 `koanf:"rate_limit_per_second" validate:"gte=0"`
	RateLimitBurst     int     `koanf:"rate_limit_burst" validate:"min=1"`
}

// RoutingConfig configures the OSRM client.
type RoutingConfig struct {
	URL            string        `koanf:"url" validate:"required"`
	Timeout        time.Duration `koanf:"timeout" validate:"gt=0"`
	ProbeLatitude  float64       `koanf:"probe_latitude" validate:"latitude"`
	ProbeLongitude float64       `koanf:"probe_longitude" validate:"longitude"`

	// Circuit breaker
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures" validate:"min=1"`
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout" validate:"gt=0"`
	BreakerInterval    time.Duration `koanf:"breaker_interval" validate:"gte=0"`
}

// SegmentConfig configures the segment descriptor side cache.
type SegmentConfig struct {
	CacheSize int           `koanf:"cache_size" validate:"min=1"`
	CacheTTL  time.Duration `koanf:"cache_ttl" validate:"gt=0"`

	// StorePath is the Badger directory. Empty keeps the cache in memory only.
	StorePath string `koanf:"store_path"`
}

// DatabaseConfig configures DuckDB.
type DatabaseConfig struct {
	Path         string `koanf:"path" validate:"required"`
	MaxMemory    string `koanf:"max_memory"`
	Threads      int    `koanf:"threads" validate:"gte=0"`
	QueryLimit   int    `koanf:"query_limit" validate:"min=1,max=1000000"`
	SkipIndexes  bool   `koanf:"skip_indexes"`
	SeedMockData bool   `koanf:"seed_mock_data"`
}

// SecurityConfig holds bearer token and HTTP API protection settings.
type SecurityConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	JWTIssuer string        `koanf:"jwt_issuer"`
	JWTLeeway time.Duration `koanf:"jwt_leeway" validate:"gte=0"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// NATSConfig configures optional publishing of stored positions.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port" validate:"gte=-1,max=65535"`
	Subject        string `koanf:"subject" validate:"required"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// IngestAddr returns the UDP listen address.
func (c *Config) IngestAddr() string {
	return c.Ingest.Addr()
}

// Addr returns the UDP listen address.
func (c *IngestConfig) Addr() string {
	return joinHostPort(c.Host, c.Port)
}

// HTTPAddr returns the HTTP listen address.
func (c *Config) HTTPAddr() string {
	return joinHostPort(c.Server.Host, c.Server.Port)
}

// IsTrustedPlaintext reports whether the listener accepts unverified identities.
func (c *Config) IsTrustedPlaintext() bool {
	return c.Ingest.Mode == IngestModeTrustedPlaintext
}

// ShouldWarnAboutCORS reports a wildcard origin.
func (c *Config) ShouldWarnAboutCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// Load reads configuration from defaults, file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
