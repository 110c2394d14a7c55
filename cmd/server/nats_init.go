// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package main

import (
	"fmt"

	"github.com/tomtom215/roadpulse/internal/config"
	"github.com/tomtom215/roadpulse/internal/eventprocessor"
	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/supervisor"
)

// NATSComponents holds the optional NATS publisher and embedded server.
// The zero value represents NATS disabled.
type NATSComponents struct {
	server    *eventprocessor.EmbeddedServer
	publisher *eventprocessor.Publisher
}

// InitNATS starts the embedded server when configured and connects the
// position publisher. It returns empty components when NATS is disabled.
func InitNATS(cfg *config.NATSConfig) (*NATSComponents, error) {
	c := &NATSComponents{}
	if !cfg.Enabled {
		logging.Info().Msg("NATS publishing disabled (NATS_ENABLED=false)")
		return c, nil
	}

	var url string
	if cfg.EmbeddedServer {
		srv, err := eventprocessor.NewEmbeddedServer(eventprocessor.ServerConfigFrom(cfg))
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		c.server = srv
		url = srv.ClientURL()
	}

	pub, err := eventprocessor.NewPublisher(eventprocessor.PublisherConfigFrom(cfg, url), logging.NewWatermillLogger())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	c.publisher = pub

	logging.Info().
		Str("subject", pub.Subject()).
		Bool("embedded", c.server != nil).
		Msg("NATS position publishing enabled")
	return c, nil
}

// Publisher returns the position publisher, or nil when NATS is disabled.
func (c *NATSComponents) Publisher() *eventprocessor.Publisher {
	return c.publisher
}

// AddToSupervisor hands the embedded server's lifecycle to the tree.
func (c *NATSComponents) AddToSupervisor(tree *supervisor.SupervisorTree) {
	if c.server != nil {
		tree.AddMessagingService(c.server)
	}
}

// Close closes the publisher and stops the embedded server if it is still
// running.
func (c *NATSComponents) Close() {
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS publisher")
		}
	}
	if c.server != nil && c.server.IsRunning() {
		c.server.Shutdown()
	}
}
