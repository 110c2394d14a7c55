// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package api

import (
	"net/http"

	"github.com/tomtom215/roadpulse/internal/models"
)

// Congestion returns the segments currently occupied by two or more vehicles.
//
// Query parameters:
//   - time_window: trailing window in seconds (default 300, max 86400)
func (h *Handler) Congestion(w http.ResponseWriter, r *http.Request) {
	window, apiErr := getIntParam(r, "time_window", defaultCongestionWindow)
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	req := CongestionRequest{TimeWindow: window}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	entries, err := h.detector.Detect(r.Context(), req.TimeWindow)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeDatabase, "Failed to detect congestion", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.CongestionResponse{
		Success:    true,
		Congestion: orEmpty(entries),
		Total:      len(entries),
		TimeWindow: req.TimeWindow,
	})
}
