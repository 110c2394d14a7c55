// Roadpulse - Vehicle Telemetry Ingestion and Congestion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadpulse

package logging

import (
	"sort"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillLogger adapts zerolog to watermill.LoggerAdapter so the NATS
// publisher logs through the same pipeline as the rest of the service.
type WatermillLogger struct {
	logger zerolog.Logger
}

var _ watermill.LoggerAdapter = (*WatermillLogger)(nil)

// NewWatermillLogger creates an adapter on the global logger.
func NewWatermillLogger() *WatermillLogger {
	return &WatermillLogger{
		logger: With().Str("component", "events").Logger(),
	}
}

// NewWatermillLoggerWithLogger creates an adapter on a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWatermillLoggerWithLogger(logger zerolog.Logger) *WatermillLogger {
	return &WatermillLogger{
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Error logs at ERROR.
func (w *WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	addFields(w.logger.Error().Err(err), fields).Msg(msg)
}

// Info logs at INFO.
func (w *WatermillLogger) Info(msg string, fields watermill.LogFields) {
	addFields(w.logger.Info(), fields).Msg(msg)
}

// Debug logs at DEBUG.
func (w *WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	addFields(w.logger.Debug(), fields).Msg(msg)
}

// Trace logs at TRACE.
func (w *WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	addFields(w.logger.Trace(), fields).Msg(msg)
}

// With returns an adapter carrying fields on every entry.
func (w *WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := w.logger.With()
	for _, k := range sortedKeys(fields) {
		ctx = ctx.Interface(k, fields[k])
	}
	return &WatermillLogger{logger: ctx.Logger()}
}

func addFields(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	if !e.Enabled() {
		return e
	}
	for _, k := range sortedKeys(fields) {
		e = e.Interface(k, fields[k])
	}
	return e
}

// sortedKeys keeps field order stable across entries.
func sortedKeys(fields watermill.LogFields) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
