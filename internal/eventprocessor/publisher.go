// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/roadpulse/internal/metrics"
	"github.com/tomtom215/roadpulse/internal/models"
)

// Publisher sends stored positions to NATS through Watermill, behind a
// circuit breaker.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	breakerName    string
	subject        string
	now            func() time.Time
	logger         watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewPublisher connects a Watermill NATS publisher. The connection retries in
// the background, so an unreachable server does not fail construction.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("roadpulse"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return newPublisher(pub, cfg, logger), nil
}

func newPublisher(pub message.Publisher, cfg PublisherConfig, logger watermill.LoggerAdapter) *Publisher {
	return &Publisher{
		publisher:      pub,
		circuitBreaker: NewCircuitBreaker(cfg.Breaker),
		breakerName:    cfg.Breaker.Name,
		subject:        cfg.Subject,
		now:            time.Now,
		logger:         logger,
	}
}

// Name identifies the publisher as an ingestion sink.
func (p *Publisher) Name() string { return "nats" }

// Subject returns the subject positions are published on.
func (p *Publisher) Subject() string { return p.subject }

// Publish encodes rec as a PositionEvent and publishes it.
func (p *Publisher) Publish(ctx context.Context, rec *models.PositionRecord) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	event := models.NewPositionEvent(rec, p.now())
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("type", event.Type)
	msg.Metadata.Set("source", rec.Source)
	if rec.UserID != nil {
		msg.Metadata.Set("user_id", *rec.UserID)
	}
	if rec.SegmentID != nil {
		msg.Metadata.Set("segment_id", *rec.SegmentID)
	}

	_, err = p.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(p.subject, msg)
	})
	recordBreakerResult(p.breakerName, err)
	metrics.RecordNATSPublish(err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// BreakerState reports the publish breaker state.
func (p *Publisher) BreakerState() string {
	return CircuitBreakerState(p.circuitBreaker)
}

// Close shuts the publisher down. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
