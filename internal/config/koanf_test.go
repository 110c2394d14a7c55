// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "this_is_a_very_long_secret_key_with_32_plus_characters"

// isolateEnv points the loader at nothing but what the test provides.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	prev := DotEnvFile
	DotEnvFile = ""
	t.Cleanup(func() { DotEnvFile = prev })
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Ingest.Port != 5049 {
		t.Errorf("Ingest.Port = %d, want 5049", cfg.Ingest.Port)
	}
	if cfg.Ingest.Mode != IngestModeAuthenticated {
		t.Errorf("Ingest.Mode = %q, want %q", cfg.Ingest.Mode, IngestModeAuthenticated)
	}
	if cfg.Ingest.MaxPacketSize != 1024 {
		t.Errorf("Ingest.MaxPacketSize = %d, want 1024", cfg.Ingest.MaxPacketSize)
	}
	if cfg.Routing.URL != "http://localhost:5001" {
		t.Errorf("Routing.URL = %q", cfg.Routing.URL)
	}
	if cfg.Routing.Timeout != 2*time.Second {
		t.Errorf("Routing.Timeout = %v, want 2s", cfg.Routing.Timeout)
	}
	if cfg.Routing.ProbeLatitude != 11.0 || cfg.Routing.ProbeLongitude != -74.8 {
		t.Errorf("probe = (%v, %v), want (11.0, -74.8)", cfg.Routing.ProbeLatitude, cfg.Routing.ProbeLongitude)
	}
	if cfg.Database.QueryLimit != 50000 {
		t.Errorf("Database.QueryLimit = %d, want 50000", cfg.Database.QueryLimit)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS should be disabled by default")
	}
	if cfg.Segment.StorePath != "" {
		t.Errorf("Segment.StorePath = %q, want empty", cfg.Segment.StorePath)
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("UDP_PORT", "6000")
	t.Setenv("OSRM_URL", "http://osrm.internal:5000")
	t.Setenv("OSRM_TIMEOUT", "1500ms")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("QUERY_LIMIT", "1000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Ingest.Port != 6000 {
		t.Errorf("Ingest.Port = %d, want 6000", cfg.Ingest.Port)
	}
	if cfg.Routing.URL != "http://osrm.internal:5000" {
		t.Errorf("Routing.URL = %q", cfg.Routing.URL)
	}
	if cfg.Routing.Timeout != 1500*time.Millisecond {
		t.Errorf("Routing.Timeout = %v", cfg.Routing.Timeout)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Database.QueryLimit != 1000 {
		t.Errorf("QueryLimit = %d", cfg.Database.QueryLimit)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if got := cfg.IngestAddr(); got != "0.0.0.0:6000" {
		t.Errorf("IngestAddr() = %q", got)
	}
}

func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ingest:
  mode: trusted_plaintext
  port: 7000
routing:
  url: http://10.0.0.5:5001
  breaker_max_failures: 3
database:
  path: /tmp/positions.duckdb
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("UDP_PORT", "7100")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if !cfg.IsTrustedPlaintext() {
		t.Errorf("Ingest.Mode = %q, want trusted_plaintext", cfg.Ingest.Mode)
	}
	if cfg.Ingest.Port != 7100 {
		t.Errorf("env should win over file: Ingest.Port = %d", cfg.Ingest.Port)
	}
	if cfg.Routing.BreakerMaxFailures != 3 {
		t.Errorf("BreakerMaxFailures = %d", cfg.Routing.BreakerMaxFailures)
	}
	if cfg.Database.Path != "/tmp/positions.duckdb" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Routing.Timeout != 2*time.Second {
		t.Errorf("defaults should survive file load: Routing.Timeout = %v", cfg.Routing.Timeout)
	}
}

func TestLoadWithKoanf_DotEnv(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("JWT_SECRET="+testSecret+"\nHTTP_PORT=9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	DotEnvFile = envPath
	// godotenv writes into the process environment; restore it afterwards.
	t.Setenv("JWT_SECRET", "")
	t.Setenv("HTTP_PORT", "")
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("HTTP_PORT")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Security.JWTSecret != testSecret {
		t.Error("JWT secret not loaded from .env")
	}
}

func TestLoadWithKoanf_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "authenticated mode without secret",
			env:     map[string]string{"JWT_SECRET": ""},
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "short secret",
			env:     map[string]string{"JWT_SECRET": "short"},
			wantErr: "at least 32 characters",
		},
		{
			name:    "unknown ingest mode",
			env:     map[string]string{"JWT_SECRET": testSecret, "INGEST_MODE": "open"},
			wantErr: "mode must be one of",
		},
		{
			name:    "routing url with path",
			env:     map[string]string{"JWT_SECRET": testSecret, "OSRM_URL": "http://osrm:5000/route"},
			wantErr: "OSRM_URL is invalid",
		},
		{
			name:    "nats with bad url",
			env:     map[string]string{"JWT_SECRET": testSecret, "NATS_ENABLED": "true", "NATS_URL": "http://nats:4222"},
			wantErr: "NATS_URL is invalid",
		},
		{
			name:    "port out of range",
			env:     map[string]string{"JWT_SECRET": testSecret, "UDP_PORT": "70000"},
			wantErr: "port must be at most 65535",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatalf("LoadWithKoanf() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestTrustedPlaintextAllowsMissingSecret(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("INGEST_MODE", IngestModeTrustedPlaintext)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if !cfg.IsTrustedPlaintext() {
		t.Error("expected trusted plaintext mode")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"OSRM_URL":       "routing.url",
		"INGEST_MODE":    "ingest.mode",
		"duckdb_path":    "database.path",
		"NATS_EMBEDDED":  "nats.embedded_server",
		"HOME":           "",
		"PATH":           "",
		"SOME_OTHER_VAR": "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	cfg := defaultConfig()
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("default wildcard origin should warn")
	}
	cfg.Security.CORSOrigins = []string{"https://ops.example"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("explicit origin should not warn")
	}
}
