package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter_Format(t *testing.T) {
	t.Parallel()

	var jsonBuf, textBuf bytes.Buffer
	NewWithWriter(&jsonBuf, "info", "").Info("hello", "bot_id", "7")
	NewWithWriter(&textBuf, "info", "TEXT").Info("hello", "bot_id", "7")

	if !strings.Contains(jsonBuf.String(), `"bot_id":"7"`) {
		t.Errorf("json output = %s", jsonBuf.String())
	}
	if !strings.Contains(textBuf.String(), "bot_id=7") {
		t.Errorf("text output = %s", textBuf.String())
	}
}

func TestNewWithWriter_FiltersBelowLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")
	log.Info("dropped")
	log.Warn("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != slog.Default() {
		t.Error("empty context should yield the default logger")
	}

	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewWithWriter(&buf, "debug", "json"))
	ctx = With(ctx, "bot_id", "42")
	FromContext(ctx).Info("answered")
	if !strings.Contains(buf.String(), `"bot_id":"42"`) {
		t.Errorf("output = %s", buf.String())
	}
}
