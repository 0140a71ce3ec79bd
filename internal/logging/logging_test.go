package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"quiet", quietLevel},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := LevelFromString(tt.in); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	if got := LevelFromVerbosity(3, true); got != quietLevel {
		t.Errorf("quiet should suppress everything, got %v", got)
	}
	if got := LevelFromVerbosity(0, false); got != slog.LevelWarn {
		t.Errorf("verbosity 0 = %v, want warn", got)
	}
	if got := LevelFromVerbosity(1, false); got != slog.LevelInfo {
		t.Errorf("verbosity 1 = %v, want info", got)
	}
	if got := LevelFromVerbosity(2, false); got != slog.LevelDebug {
		t.Errorf("verbosity 2 = %v, want debug", got)
	}
}

func TestHumanFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Format: HumanFormat, Level: "debug", Output: buf})

	logger.With("component", "cache").WithGroup("op").Info("fuzzy hit", "key", "xppkb:search:all:20:cust")

	out := buf.String()
	for _, want := range []string{"[info]", "fuzzy hit", "component=cache", "op.key=xppkb:search:all:20:cust"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Format: HumanFormat, Level: "warn", Output: buf})

	logger.Info("hidden")
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}

	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn message missing from %q", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Format: JSONFormat, Level: "info", Output: buf})

	logger.Info("indexed", "symbols", 42)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "indexed" {
		t.Errorf("msg = %v, want indexed", entry["msg"])
	}
	if entry["symbols"] != float64(42) {
		t.Errorf("symbols = %v, want 42", entry["symbols"])
	}
}

func TestDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled at error level")
	}
}

func TestVerbosityOverridesLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Format: HumanFormat, Level: "error", Output: buf, Verbosity: 2})
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug message missing with -vv: %q", buf.String())
	}

	buf.Reset()
	logger = NewLogger(Config{Format: HumanFormat, Level: "debug", Output: buf, Quiet: true})
	logger.Error("hidden")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q", buf.String())
	}
}
