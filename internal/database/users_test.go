// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package database

import (
	"context"
	"errors"
	"testing"
)

func TestCreateAndResolveUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	u, err := db.CreateUser(ctx, "firebase|abc", "Driver One")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Fatalf("CreateUser() = %+v", u)
	}

	id, err := db.ResolveExternalUser(ctx, "firebase|abc")
	if err != nil {
		t.Fatalf("ResolveExternalUser() error = %v", err)
	}
	if id != u.ID {
		t.Errorf("ResolveExternalUser() = %q, want %q", id, u.ID)
	}

	again, err := db.CreateUser(ctx, "firebase|abc", "Renamed")
	if err != nil {
		t.Fatalf("CreateUser() repeat error = %v", err)
	}
	if again.ID != u.ID || again.DisplayName != "Driver One" {
		t.Errorf("repeat CreateUser() = %+v, want existing user", again)
	}
}

func TestResolveExternalUserNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.ResolveExternalUser(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCreateUserRequiresExternalUID(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.CreateUser(context.Background(), "  ", "x"); err == nil {
		t.Error("CreateUser() with blank uid should fail")
	}
}
