package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"
	cfg.Output = &buf

	ctx := WithContext(context.Background(), New(cfg))
	ctx = WithComponent(ctx, "relay")
	FromContext(ctx).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["component"] != "relay" {
		t.Errorf("component = %v, want relay", line["component"])
	}
	if line["message"] != "hello" {
		t.Errorf("message = %v, want hello", line["message"])
	}
}

func TestFromContextWithoutLogger(t *testing.T) {
	// zerolog hands back a disabled logger; using it must not panic.
	FromContext(context.Background()).Info().Msg("dropped")
}
