// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/roadpulse/internal/config"
	"github.com/tomtom215/roadpulse/internal/database"
)

// UserResolver maps an external subject to a local user id.
// It returns database.ErrNotFound for unknown subjects.
type UserResolver interface {
	ResolveExternalUser(ctx context.Context, externalUID string) (string, error)
}

// Verifier validates bearer tokens and resolves them to local user ids.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
	users  UserResolver
}

// NewVerifier creates a verifier. Issuer and leeway come from cfg; an empty
// issuer disables the issuer check.
func NewVerifier(cfg *config.SecurityConfig, users UserResolver) (*Verifier, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}
	if users == nil {
		return nil, errors.New("auth: user resolver is required")
	}
	return &Verifier{
		secret: []byte(cfg.JWTSecret),
		parser: newParser(cfg.JWTIssuer, cfg.JWTLeeway),
		users:  users,
	}, nil
}

func newParser(issuer string, leeway time.Duration) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return jwt.NewParser(opts...)
}

// Verify validates token and returns the local user id of its subject.
// A leading "Bearer " is ignored. Errors wrap one of ErrTokenMalformed,
// ErrTokenInvalid, ErrTokenExpired or ErrUnknownSubject; any other error is
// an identity store failure.
func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	userID, err := v.verify(ctx, token)
	recordVerification(err)
	return userID, err
}

func (v *Verifier) verify(ctx context.Context, token string) (string, error) {
	token = StripBearer(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrTokenMalformed)
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", classifyJWTError(err)
	}
	if !parsed.Valid {
		return "", ErrTokenInvalid
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	userID, err := v.users.ResolveExternalUser(ctx, claims.Subject)
	if errors.Is(err, database.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrUnknownSubject, claims.Subject)
	}
	if err != nil {
		return "", fmt.Errorf("resolve subject: %w", err)
	}
	return userID, nil
}

// StripBearer trims whitespace and an optional case-insensitive "Bearer " prefix.
func StripBearer(token string) string {
	token = strings.TrimSpace(token)
	const prefix = "bearer "
	if len(token) >= len(prefix) && strings.EqualFold(token[:len(prefix)], prefix) {
		token = strings.TrimSpace(token[len(prefix):])
	}
	return token
}

// RejectReason returns a short label for a Verify error.
func RejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrUnknownSubject):
		return "unknown_subject"
	case errors.Is(err, ErrTokenInvalid):
		return "invalid"
	default:
		return "store_error"
	}
}
