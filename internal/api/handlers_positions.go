// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/roadpulse/internal/database"
	"github.com/tomtom215/roadpulse/internal/models"
)

// Location returns the most recently stored position of one user.
func (h *Handler) Location(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := LocationRequest{UserID: strings.TrimSpace(chi.URLParam(r, "userId"))}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	rec, err := h.store.LatestPosition(r.Context(), req.UserID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, codeNotFound, "No position recorded for user", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeDatabase, "Failed to load position", err)
		return
	}

	respondData(w, start, rec, -1)
}

// ActiveDevices returns the latest position of every user seen within the
// window.
//
// Query parameters:
//   - window: seconds (default 120)
//   - user_id, user_ids: optional user restriction
func (h *Handler) ActiveDevices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	window, apiErr := getIntParam(r, "window", defaultActiveWindow)
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	req := ActiveDevicesRequest{Window: window}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	since := h.now().Add(-time.Duration(req.Window) * time.Second)
	records, err := h.store.LatestPositions(r.Context(), since, userFilterFromQuery(r))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeDatabase, "Failed to load active devices", err)
		return
	}

	respondData(w, start, orEmpty(records), len(records))
}

// HistoryByDate returns every position observed on one calendar day.
func (h *Handler) HistoryByDate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := HistoryDateRequest{Date: chi.URLParam(r, "date")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	day, err := time.ParseInLocation(dateLayout, req.Date, h.now().Location())
	if err != nil {
		respondAPIError(w, http.StatusBadRequest, paramError("date", req.Date, "a YYYY-MM-DD date"))
		return
	}

	records, err := h.store.PositionsByDate(r.Context(), day, userFilterFromQuery(r))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeDatabase, "Failed to load history", err)
		return
	}

	respondData(w, start, orEmpty(records), len(records))
}

// HistoryRange returns positions observed between two instants.
//
// Query parameters:
//   - start, end: YYYY-MM-DD (required)
//   - start_time, end_time: HH:MM (default 00:00 and 23:59)
//   - user_id, user_ids: optional user restriction
func (h *Handler) HistoryRange(w http.ResponseWriter, r *http.Request) {
	begin := time.Now()
	q := r.URL.Query()

	req := HistoryRangeRequest{
		Start:     strings.TrimSpace(q.Get("start")),
		StartTime: strings.TrimSpace(q.Get("start_time")),
		End:       strings.TrimSpace(q.Get("end")),
		EndTime:   strings.TrimSpace(q.Get("end_time")),
	}
	if req.StartTime == "" {
		req.StartTime = defaultStartClock
	}
	if req.EndTime == "" {
		req.EndTime = defaultEndClock
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	from, to, err := req.Bounds(h.now().Location())
	if err != nil {
		respondAPIError(w, http.StatusBadRequest, paramError("start", req.Start, "a valid date and time"))
		return
	}
	if from.After(to) {
		respondAPIError(w, http.StatusBadRequest, &models.APIError{
			Code:    codeValidation,
			Message: "start must not be after end",
			Details: map[string]interface{}{
				"start": from.Format(time.DateTime),
				"end":   to.Format(time.DateTime),
			},
		})
		return
	}

	records, err := h.store.PositionsByDateRange(r.Context(), models.TimeRange{Start: from, End: to}, userFilterFromQuery(r))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeDatabase, "Failed to load history", err)
		return
	}

	respondData(w, begin, orEmpty(records), len(records))
}

// HistoryGeofence returns positions inside a bounding box.
//
// Query parameters:
//   - min_lat, max_lat, min_lon, max_lon: required, inclusive
//   - start, end: optional YYYY-MM-DD days, both or neither
//   - user_id, user_ids: optional user restriction
func (h *Handler) HistoryGeofence(w http.ResponseWriter, r *http.Request) {
	begin := time.Now()
	q := r.URL.Query()

	var req GeofenceRequest
	for _, p := range []struct {
		key string
		dst **float64
	}{
		{"min_lat", &req.MinLat},
		{"max_lat", &req.MaxLat},
		{"min_lon", &req.MinLon},
		{"max_lon", &req.MaxLon},
	} {
		v, apiErr := getFloatParam(r, p.key)
		if apiErr != nil {
			respondAPIError(w, http.StatusBadRequest, apiErr)
			return
		}
		*p.dst = v
	}
	req.Start = strings.TrimSpace(q.Get("start"))
	req.End = strings.TrimSpace(q.Get("end"))

	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	if apiErr := checkGeofence(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	bounds := models.GeoBounds{MinLat: *req.MinLat, MaxLat: *req.MaxLat, MinLon: *req.MinLon, MaxLon: *req.MaxLon}

	var tr *models.TimeRange
	if req.Start != "" {
		loc := h.now().Location()
		from, err1 := time.ParseInLocation(dateLayout, req.Start, loc)
		to, err2 := time.ParseInLocation(dateLayout, req.End, loc)
		if err1 != nil || err2 != nil {
			respondAPIError(w, http.StatusBadRequest, paramError("start", req.Start, "a YYYY-MM-DD date"))
			return
		}
		tr = &models.TimeRange{Start: from, End: database.DayRange(to).End}
	}

	records, err := h.store.PositionsByGeofence(r.Context(), bounds, userFilterFromQuery(r), tr)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeDatabase, "Failed to load geofence history", err)
		return
	}

	respondData(w, begin, orEmpty(records), len(records))
}

// checkGeofence enforces the cross-field rules the validator tags do not.
func checkGeofence(req *GeofenceRequest) *models.APIError {
	switch {
	case *req.MinLat > *req.MaxLat:
		return &models.APIError{Code: codeValidation, Message: "min_lat must be less than or equal to max_lat",
			Details: map[string]interface{}{"field": "min_lat"}}
	case *req.MinLon > *req.MaxLon:
		return &models.APIError{Code: codeValidation, Message: "min_lon must be less than or equal to max_lon",
			Details: map[string]interface{}{"field": "min_lon"}}
	case (req.Start == "") != (req.End == ""):
		return &models.APIError{Code: codeValidation, Message: "start and end must be given together",
			Details: map[string]interface{}{"field": "start"}}
	case req.Start != "" && req.Start > req.End:
		return &models.APIError{Code: codeValidation, Message: "start must not be after end",
			Details: map[string]interface{}{"field": "start"}}
	}
	return nil
}
