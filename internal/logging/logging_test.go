package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/MrEthical07/authsession/transport"
)

func TestHandlerAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "json")

	ctx := transport.WithRequestID(context.Background(), "req-1")
	logger.InfoContext(ctx, "login", "op", "login")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec[RequestIDKey] != "req-1" {
		t.Fatalf("expected request_id req-1, got %v", rec[RequestIDKey])
	}
	if rec["op"] != "login" {
		t.Fatalf("expected op attr, got %v", rec["op"])
	}
}

func TestHandlerWithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "text")
	logger.With("component", "session").Info("logout")

	line := buf.String()
	if strings.Contains(line, RequestIDKey) {
		t.Fatalf("unexpected request_id in %q", line)
	}
	if !strings.Contains(line, "component=session") {
		t.Fatalf("expected attrs to survive WithAttrs, got %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "text")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWrapNilAndIdempotent(t *testing.T) {
	if Wrap(nil) == nil {
		t.Fatal("expected discarding logger")
	}
	h := NewHandler(slog.DiscardHandler)
	if NewHandler(h) != h {
		t.Fatal("wrapping a Handler twice should return it unchanged")
	}
}
