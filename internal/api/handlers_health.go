// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package api

import (
	"context"
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/metrics"
	"github.com/tomtom215/roadpulse/internal/models"
	ws "github.com/tomtom215/roadpulse/internal/websocket"
)

// Build information, set with -ldflags "-X". Empty values fall back to the
// module build info.
var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
)

const healthProbeTimeout = 3 * time.Second

// Health reports database connectivity and routing engine availability.
// The service is degraded, not down, without the routing engine: ingestion
// keeps storing raw coordinates.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	dbConnected := h.store != nil && h.store.Ping(ctx) == nil
	osrmAvailable := h.routing != nil && h.routing.IsAvailable(ctx)

	status := "healthy"
	if !dbConnected || !osrmAvailable {
		status = "degraded"
	}

	uptime := time.Since(h.startTime).Seconds()
	metrics.AppUptime.Set(uptime)

	health := models.HealthStatus{
		Status:      status,
		Database:    dbConnected,
		OSRM:        osrmAvailable,
		SnapToRoads: osrmAvailable,
		Uptime:      uptime,
		Timestamp:   h.now().UTC(),
	}
	if h.config != nil {
		health.App = h.config.App.Name
		health.IngestMode = h.config.Ingest.Mode
	}

	respondData(w, start, health, -1)
}

// VersionInfo handles GET /version.
func (h *Handler) VersionInfo(w http.ResponseWriter, r *http.Request) {
	respondData(w, time.Now(), BuildInfo(), -1)
}

// BuildInfo merges linker-provided values with the VCS stamps recorded by
// the Go toolchain.
func BuildInfo() models.VersionInfo {
	info := models.VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			}
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

// WebSocket upgrades the request and attaches the client to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	ws.NewClient(h.wsHub, conn).Attach()
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts browsers from the configured CORS origins.
// Requests without an Origin header are rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
