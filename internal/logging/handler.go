// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

// Package logging provides structured logging that stamps every record
// with the service identity, the world id carried in the context, and
// OpenTelemetry trace context when a span is active.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

type worldIDKey struct{}

// WithWorldID returns a context whose log records carry the world id, so
// every line emitted while serving a session names the world it belongs to.
func WithWorldID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, worldIDKey{}, id)
}

// sessionHandler decorates records with service identity, the contextual
// world id, and trace/span ids.
type sessionHandler struct {
	inner   slog.Handler
	service string
	version string
}

func (h *sessionHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	if id, ok := ctx.Value(worldIDKey{}).(string); ok && id != "" {
		r.AddAttrs(slog.String("world_id", id))
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.inner.Handle(ctx, r)
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionHandler{inner: h.inner.WithAttrs(attrs), service: h.service, version: h.version}
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	return &sessionHandler{inner: h.inner.WithGroup(name), service: h.service, version: h.version}
}

// Setup creates a configured slog.Logger. format is "json" or "text"
// (anything else falls back to json). A nil writer means os.Stderr.
func Setup(service, version, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	var inner slog.Handler
	if format == "text" {
		inner = slog.NewTextHandler(w, opts)
	} else {
		inner = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&sessionHandler{inner: inner, service: service, version: version})
}

// SetDefault sets up and installs the process-wide default logger.
func SetDefault(service, version, format string) {
	slog.SetDefault(Setup(service, version, format, nil))
}
