// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

/*
Package auth verifies the bearer credentials carried in ingestion packets.

Credentials are HS256 JWTs issued by an external identity provider that
shares JWT_SECRET with this service. The token subject is the provider's
user id; it is resolved to a local user id through the users table.

Key Components:

  - Verifier: parses and validates a token, then resolves its subject
  - TokenIssuer: mints tokens with the same secret (seeding and tests)

Rejections are classified so the listener can log a precise reason:

	userID, err := verifier.Verify(ctx, token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
	    // drop, credential too old
	case errors.Is(err, auth.ErrUnknownSubject):
	    // drop, subject not provisioned locally
	}

Only HS256 is accepted. Tokens signed with any other algorithm, including
"none", are rejected as invalid.
*/
package auth
