// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/roadpulse/internal/config"
	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/metrics"
	"github.com/tomtom215/roadpulse/internal/models"
)

func startServer(t *testing.T) *EmbeddedServer {
	t.Helper()
	srv, err := NewEmbeddedServer(ServerConfig{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func testRecord() *models.PositionRecord {
	return &models.PositionRecord{
		ID:        42,
		Lat:       11.0041,
		Lon:       -74.807,
		Timestamp: "2026-03-02 12:00:00",
		Source:    "10.0.0.7:40211",
		UserID:    models.StringPtr("7"),
		SegmentID: models.StringPtr("0123456789abcdef"),
	}
}

func TestPublisher_EndToEnd(t *testing.T) {
	srv := startServer(t)

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()
	sub, err := nc.SubscribeSync("roadpulse.positions")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	cfg := PublisherConfigFrom(&config.NATSConfig{URL: "nats://unused:4222", Subject: "roadpulse.positions"}, srv.ClientURL())
	pub, err := NewPublisher(cfg, logging.NewWatermillLogger())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	defer pub.Close()

	before := testutil.ToFloat64(metrics.NATSMessagesPublished)
	if err := pub.Publish(context.Background(), testRecord()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg() error = %v", err)
	}
	var event models.PositionEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Type != models.EventTypePosition || event.EventID == "" {
		t.Errorf("event = %+v", event)
	}
	if event.Position.ID != 42 || *event.Position.SegmentID != "0123456789abcdef" {
		t.Errorf("position = %+v", event.Position)
	}
	if got := msg.Header.Get("user_id"); got != "7" {
		t.Errorf("user_id header = %q", got)
	}
	if got := testutil.ToFloat64(metrics.NATSMessagesPublished); got != before+1 {
		t.Errorf("published counter = %v, want %v", got, before+1)
	}
}

func TestPublisher_Closed(t *testing.T) {
	fake := &failingPublisher{}
	pub := newPublisher(fake, DefaultPublisherConfig(), watermill.NopLogger{})

	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := pub.Publish(context.Background(), testRecord()); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Publish() after Close = %v, want ErrPublisherClosed", err)
	}
	if fake.closes != 1 {
		t.Errorf("underlying Close called %d times", fake.closes)
	}
}

func TestPublisher_BreakerOpens(t *testing.T) {
	cfg := DefaultPublisherConfig()
	cfg.Breaker.Name = "nats-publisher-test"
	cfg.Breaker.FailureThreshold = 2
	cfg.Breaker.Timeout = time.Hour
	fake := &failingPublisher{err: errors.New("nats: connection closed")}
	pub := newPublisher(fake, cfg, watermill.NopLogger{})

	for i := 0; i < 2; i++ {
		if err := pub.Publish(context.Background(), testRecord()); err == nil {
			t.Fatal("Publish() succeeded against failing publisher")
		}
	}
	if pub.BreakerState() != "open" {
		t.Fatalf("breaker = %s, want open", pub.BreakerState())
	}

	err := pub.Publish(context.Background(), testRecord())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Publish() with open breaker = %v, want ErrOpenState", err)
	}
	if fake.calls != 2 {
		t.Errorf("underlying publisher called %d times, want 2", fake.calls)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("nats-publisher-test")); got != 2 {
		t.Errorf("breaker gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("nats-publisher-test", "rejected")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
}

func TestPublisherConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*PublisherConfig)
		ok     bool
	}{
		{"defaults", func(*PublisherConfig) {}, true},
		{"no url", func(c *PublisherConfig) { c.URL = "" }, false},
		{"no subject", func(c *PublisherConfig) { c.Subject = "" }, false},
		{"no threshold", func(c *PublisherConfig) { c.Breaker.FailureThreshold = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultPublisherConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestPublisherConfigFrom(t *testing.T) {
	t.Parallel()

	cfg := PublisherConfigFrom(&config.NATSConfig{URL: "nats://broker:4222", Subject: "fleet.positions"}, "")
	if cfg.URL != "nats://broker:4222" || cfg.Subject != "fleet.positions" {
		t.Errorf("cfg = %+v", cfg)
	}
	cfg = PublisherConfigFrom(&config.NATSConfig{URL: "nats://broker:4222"}, "nats://127.0.0.1:5222")
	if cfg.URL != "nats://127.0.0.1:5222" || cfg.Subject != "roadpulse.positions" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestEmbeddedServer_Serve(t *testing.T) {
	srv, err := NewEmbeddedServer(ServerConfig{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	if !srv.IsRunning() {
		t.Fatal("server not running after start")
	}
	if srv.String() != "nats-embedded" {
		t.Errorf("String() = %q", srv.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if srv.IsRunning() {
		t.Error("server still running after Serve returned")
	}
}

type failingPublisher struct {
	mu     sync.Mutex
	err    error
	calls  int
	closes int
}

func (f *failingPublisher) Publish(_ string, _ ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *failingPublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}
