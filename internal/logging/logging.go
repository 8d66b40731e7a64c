// Package logging wires log/slog for authsession: a handler that stamps records
// with the request identifier carried in the context, and a small factory used
// by the command-line tool.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/MrEthical07/authsession/transport"
)

// RequestIDKey is the attribute name added by [Handler].
const RequestIDKey = "request_id"

// Handler wraps an slog.Handler and injects RequestIDKey when the context
// carries a transport request identifier.
type Handler struct {
	inner slog.Handler
}

// NewHandler wraps inner. A nil inner discards everything.
func NewHandler(inner slog.Handler) *Handler {
	if inner == nil {
		inner = slog.DiscardHandler
	}
	if h, ok := inner.(*Handler); ok {
		return h
	}
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := transport.RequestID(ctx); ok {
		r.AddAttrs(slog.String(RequestIDKey, id))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("request id handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}

// Wrap returns a logger whose handler is wrapped by [Handler]. A nil logger
// yields a discarding one.
func Wrap(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(NewHandler(l.Handler()))
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels; anything
// else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to w. format is "json" or "text" (default).
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewHandler(handler))
}
