// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package logging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Security event names
const (
	EventCredentialAccepted = "credential_accepted"
	EventCredentialRejected = "credential_rejected"
	EventTrustedPlaintext   = "trusted_plaintext_enabled"
)

// SecurityEvent is a security-relevant ingestion event.
type SecurityEvent struct {
	Event   string
	UserID  string
	Source  string
	Reason  string
	Token   string
	Success bool
	Details map[string]string
}

// SecurityLogger logs credential decisions with sensitive values masked.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", "auth").Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// LogEvent logs event, adding correlation fields from ctx. Failures log at
// WARN, successes at DEBUG.
func (l *SecurityLogger) LogEvent(ctx context.Context, event *SecurityEvent) {
	var e *zerolog.Event
	if event.Success {
		e = l.logger.Debug().Str("status", "success")
	} else {
		e = l.logger.Warn().Str("status", "failed")
	}
	if !e.Enabled() {
		return
	}

	e = e.Str("event", event.Event)
	if id := CorrelationIDFromContext(ctx); id != "" {
		e = e.Str("correlation_id", id)
	}
	if event.Source != "" {
		e = e.Str("source", event.Source)
	}
	if event.UserID != "" {
		e = e.Str("user_id", event.UserID)
	}
	if event.Reason != "" {
		e = e.Str("reason", event.Reason)
	}
	if event.Token != "" {
		e = e.Str("token", SanitizeToken(event.Token))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("")
}

// LogCredentialRejected records a dropped datagram whose credential failed.
func (l *SecurityLogger) LogCredentialRejected(ctx context.Context, source, reason, token string) {
	l.LogEvent(ctx, &SecurityEvent{
		Event:  EventCredentialRejected,
		Source: source,
		Reason: reason,
		Token:  token,
	})
}

// LogCredentialAccepted records a verified credential.
func (l *SecurityLogger) LogCredentialAccepted(ctx context.Context, source, userID string) {
	l.LogEvent(ctx, &SecurityEvent{
		Event:   EventCredentialAccepted,
		Source:  source,
		UserID:  userID,
		Success: true,
	})
}

// SanitizeToken masks a token, showing only the first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeError hides error texts that may quote secrets.
func SanitizeError(err string) string {
	lowerErr := strings.ToLower(err)
	for _, pattern := range []string{"secret", "token", "bearer", "authorization", "key"} {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}
	return truncateString(err, 200)
}

// SanitizeValue masks values whose key names a credential.
func SanitizeValue(key, value string) string {
	switch strings.ToLower(key) {
	case "token", "authorization", "bearer", "secret", "jwt_secret":
		return SanitizeToken(value)
	}
	return value
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
