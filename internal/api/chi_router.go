// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/roadpulse/internal/middleware"
)

// Router binds the handler to chi routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil mw uses the default middleware config.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, codeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// Operational endpoints
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/health", router.handler.Health)
		r.Get("/version", router.handler.VersionInfo)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})

	r.Route("/api", func(r chi.Router) {
		// Live stream, outside compression
		r.With(
			router.chiMiddleware.RateLimitCustom(RateLimitWebSocket),
			middleware.PrometheusMetrics,
		).Get("/ws", router.handler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(APISecurityHeaders())
			r.Use(chimiddleware.Compress(5, "application/json"))
			r.Use(middleware.PrometheusMetrics)

			r.Get("/congestion", router.handler.Congestion)
			r.Get("/location/{userId}", router.handler.Location)
			r.Get("/devices/active", router.handler.ActiveDevices)
			r.Get("/segments/{segmentId}", router.handler.Segment)

			r.Route("/history", func(r chi.Router) {
				r.Get("/range", router.handler.HistoryRange)
				r.Get("/geofence", router.handler.HistoryGeofence)
				r.Get("/{date}", router.handler.HistoryByDate)
			})
		})
	})

	return r
}
