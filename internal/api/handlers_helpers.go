// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/roadpulse/internal/logging"
	"github.com/tomtom215/roadpulse/internal/models"
	"github.com/tomtom215/roadpulse/internal/validation"
)

// Error codes
const (
	codeValidation = "VALIDATION_ERROR"
	codeNotFound   = "NOT_FOUND"
	codeDatabase   = "DATABASE_ERROR"
	codeInternal   = "INTERNAL_ERROR"
	codeRateLimit  = "RATE_LIMIT_EXCEEDED"
)

// sanitizeLogValue escapes control characters so request values cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON writes body as JSON with an ETag.
func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Vary", "Accept-Encoding")

	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", generateETag(data))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// generateETag is FNV-1a over the body.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// respondData writes a successful envelope. Slices get a count.
func respondData(w http.ResponseWriter, start time.Time, data interface{}, count int) {
	meta := models.Metadata{
		Timestamp:   time.Now().UTC(),
		QueryTimeMS: time.Since(start).Milliseconds(),
	}
	if count >= 0 {
		meta.Count = &count
	}
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Success:  true,
		Data:     data,
		Metadata: meta,
	})
}

// respondError sends an error envelope. err is logged, never returned to
// the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Str("code", sanitizeLogValue(code)).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API Error")
	}

	respondJSON(w, status, &models.APIResponse{
		Success:  false,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}

// respondAPIError sends a prepared error payload.
func respondAPIError(w http.ResponseWriter, status int, apiErr *models.APIError) {
	respondJSON(w, status, &models.APIResponse{
		Success:  false,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    apiErr,
	})
}

// validateRequest validates a request struct with go-playground/validator.
func validateRequest(v interface{}) *models.APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}
	apiErr := validationErr.ToAPIError()
	return &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// paramError reports a query parameter that could not be parsed.
func paramError(field, value, expected string) *models.APIError {
	return &models.APIError{
		Code:    codeValidation,
		Message: fmt.Sprintf("%s must be %s", field, expected),
		Details: map[string]interface{}{
			"field": field,
			"value": value,
		},
	}
}

// getIntParam parses an integer query parameter, falling back to
// defaultValue when it is absent.
func getIntParam(r *http.Request, key string, defaultValue int) (int, *models.APIError) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, paramError(key, value, "an integer")
	}
	return n, nil
}

// getFloatParam parses an optional float query parameter.
func getFloatParam(r *http.Request, key string) (*float64, *models.APIError) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, paramError(key, value, "a finite number")
	}
	return &f, nil
}

// parseCommaSeparated splits a comma-separated list, dropping empty items.
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// userFilterFromQuery reads user_id and user_ids.
func userFilterFromQuery(r *http.Request) models.UserFilter {
	q := r.URL.Query()
	return models.UserFilter{
		UserID:  strings.TrimSpace(q.Get("user_id")),
		UserIDs: parseCommaSeparated(q.Get("user_ids")),
	}
}

// orEmpty keeps JSON arrays from rendering as null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
