// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/roadpulse/internal/config"
)

// Claims are the token claims read by the verifier. Subject carries the
// external user id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Classified rejection reasons.
var (
	ErrNoSecret       = errors.New("JWT_SECRET is required but was empty")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrUnknownSubject = errors.New("token subject not found")
)

// TokenIssuer creates tokens that Verifier accepts.
type TokenIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenIssuer creates an issuer from the security configuration.
func NewTokenIssuer(cfg *config.SecurityConfig) (*TokenIssuer, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}
	return &TokenIssuer{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
		now:    time.Now,
	}, nil
}

// Issue signs a token for subject valid for ttl. A negative ttl yields an
// already expired token.
func (i *TokenIssuer) Issue(subject string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// classifyJWTError maps a jwt/v5 parse error onto the rejection taxonomy.
func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %s", ErrTokenMalformed, err.Error())
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %s", ErrTokenExpired, err.Error())
	default:
		return fmt.Errorf("%w: %s", ErrTokenInvalid, err.Error())
	}
}
