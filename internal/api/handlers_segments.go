// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Segment returns the cached descriptor of a segment. Only segments that
// were resolved by ingestion and are still cached are known.
func (h *Handler) Segment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := SegmentRequest{SegmentID: strings.ToLower(strings.TrimSpace(chi.URLParam(r, "segmentId")))}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	if h.segments == nil {
		respondError(w, r, http.StatusNotFound, codeNotFound, "Segment not found", nil)
		return
	}

	desc, ok, err := h.segments.Lookup(r.Context(), req.SegmentID)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeInternal, "Failed to read segment cache", err)
		return
	}
	if !ok {
		respondError(w, r, http.StatusNotFound, codeNotFound, "Segment not found", nil)
		return
	}

	respondData(w, start, desc, -1)
}
