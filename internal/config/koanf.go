// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/roadpulse/config.yaml",
	"/etc/roadpulse/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvFile is loaded into the process environment when present.
// Variables already set in the environment are not overridden.
var DotEnvFile = ".env"

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "roadpulse",
			Environment: "development",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Ingest: IngestConfig{
			Host:               "0.0.0.0",
			Port:               5049,
			Mode:               IngestModeAuthenticated,
			MaxPacketSize:      1024,
			DedupWindow:        10 * time.Second,
			DedupCapacity:      4096,
			RateLimitPerSecond: 20,
			RateLimitBurst:     40,
		},
		Routing: RoutingConfig{
			URL:                "http://localhost:5001",
			Timeout:            2 * time.Second,
			ProbeLatitude:      11.0,
			ProbeLongitude:     -74.8,
			BreakerMaxFailures: 5,
			BreakerOpenTimeout: 30 * time.Second,
			BreakerInterval:    time.Minute,
		},
		Segment: SegmentConfig{
			CacheSize: 10000,
			CacheTTL:  24 * time.Hour,
			StorePath: "",
		},
		Database: DatabaseConfig{
			Path:       "/data/roadpulse.duckdb",
			MaxMemory:  "1GB",
			Threads:    0,
			QueryLimit: 50000,
		},
		Security: SecurityConfig{
			JWTLeeway:       30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			Host:           "127.0.0.1",
			Port:           4222,
			Subject:        "roadpulse.positions",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf layers defaults, the config file and the environment, then validates.
func LoadWithKoanf() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() error {
	if DotEnvFile == "" {
		return nil
	}
	if _, err := os.Stat(DotEnvFile); err != nil {
		return nil
	}
	if err := godotenv.Load(DotEnvFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to config paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"app_name":    "app.name",
	"environment": "app.environment",

	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"udp_host":                "ingest.host",
	"udp_port":                "ingest.port",
	"ingest_mode":             "ingest.mode",
	"ingest_max_packet_size":  "ingest.max_packet_size",
	"ingest_dedup_window":     "ingest.dedup_window",
	"ingest_dedup_capacity":   "ingest.dedup_capacity",
	"ingest_rate_limit":       "ingest.rate_limit_per_second",
	"ingest_rate_limit_burst": "ingest.rate_limit_burst",

	"osrm_url":                  "routing.url",
	"osrm_timeout":              "routing.timeout",
	"osrm_probe_lat":            "routing.probe_latitude",
	"osrm_probe_lon":            "routing.probe_longitude",
	"osrm_breaker_max_failures": "routing.breaker_max_failures",
	"osrm_breaker_open_timeout": "routing.breaker_open_timeout",
	"osrm_breaker_interval":     "routing.breaker_interval",

	"segment_cache_size": "segment.cache_size",
	"segment_cache_ttl":  "segment.cache_ttl",
	"segment_store_path": "segment.store_path",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"query_limit":       "database.query_limit",
	"skip_indexes":      "database.skip_indexes",
	"seed_mock_data":    "database.seed_mock_data",

	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"jwt_leeway":          "security.jwt_leeway",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"nats_enabled":  "nats.enabled",
	"nats_url":      "nats.url",
	"nats_embedded": "nats.embedded_server",
	"nats_host":     "nats.host",
	"nats_port":     "nats.port",
	"nats_subject":  "nats.subject",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path:
//
//	OSRM_URL    -> routing.url
//	INGEST_MODE -> ingest.mode
//	DUCKDB_PATH -> database.path
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
