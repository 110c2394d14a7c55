// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	a := GenerateCorrelationID()
	b := GenerateCorrelationID()
	if len(a) != 8 {
		t.Errorf("len(correlation id) = %d, want 8", len(a))
	}
	if a == b {
		t.Errorf("correlation ids should differ, both %q", a)
	}
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("empty ctx correlation id = %q", got)
	}
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("empty ctx request id = %q", got)
	}

	ctx = ContextWithCorrelationID(ctx, "abcd1234")
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithSource(ctx, "10.0.0.7:40211")

	if got := CorrelationIDFromContext(ctx); got != "abcd1234" {
		t.Errorf("correlation id = %q", got)
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("request id = %q", got)
	}
	if got := SourceFromContext(ctx); got != "10.0.0.7:40211" {
		t.Errorf("source = %q", got)
	}
}

func TestCtxAddsFields(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	ctx := ContextWithCorrelationID(context.Background(), "feedbeef")
	ctx = ContextWithSource(ctx, "127.0.0.1:9999")
	Ctx(ctx).Info().Msg("position stored")

	out := buf.String()
	for _, want := range []string{`"correlation_id":"feedbeef"`, `"source":"127.0.0.1:9999"`, "position stored"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "request_id") {
		t.Errorf("request_id should be absent: %s", out)
	}
}
