// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"

	"github.com/tomtom215/roadpulse/internal/logging"
)

const serverReadyTimeout = 10 * time.Second

// EmbeddedServer runs a NATS server in process. JetStream is off: positions
// are published fire-and-forget.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS server.
func NewEmbeddedServer(cfg ServerConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "roadpulse",
		Host:       cfg.Host,
		Port:       cfg.Port,
		JetStream:  false,
		NoSigs:     true,
		MaxPayload: 64 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.SetLoggerV2(&serverLogger{log: logging.WithComponent("nats-server")}, false, false, false)

	go ns.Start()

	if !ns.ReadyForConnections(serverReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within %s", serverReadyTimeout)
	}

	logging.Info().Str("url", ns.ClientURL()).Msg("Embedded NATS server started")
	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// IsRunning returns server health status.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}

// Serve blocks until ctx is done, then shuts the server down.
func (s *EmbeddedServer) Serve(ctx context.Context) error {
	<-ctx.Done()
	s.Shutdown()
	logging.Info().Msg("Embedded NATS server stopped")
	return ctx.Err()
}

// String names the server for the supervisor.
func (s *EmbeddedServer) String() string { return "nats-embedded" }

// serverLogger routes nats-server logs into zerolog.
type serverLogger struct {
	log zerolog.Logger
}

func (l *serverLogger) Noticef(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}

func (l *serverLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn().Msgf(format, v...)
}

func (l *serverLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error().Msgf(format, v...)
}

func (l *serverLogger) Errorf(format string, v ...interface{}) {
	l.log.Error().Msgf(format, v...)
}

func (l *serverLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}

func (l *serverLogger) Tracef(format string, v ...interface{}) {
	l.log.Trace().Msgf(format, v...)
}
