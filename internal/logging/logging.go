// Package logging builds the slog loggers used across xppkb.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format represents the output format for logs
type Format string

const (
	// JSONFormat outputs logs as JSON lines
	JSONFormat Format = "json"
	// HumanFormat outputs logs as "TIMESTAMP [level] message | k=v"
	HumanFormat Format = "human"
)

// Config holds logger configuration
type Config struct {
	Format Format
	Level  string
	Output io.Writer // Optional, defaults to stderr

	// Verbosity and Quiet come from CLI flags and override Level when set.
	Verbosity int
	Quiet     bool
}

// quietLevel is above every standard level.
const quietLevel = slog.Level(100)

// NewLogger creates a logger for the given configuration.
func NewLogger(cfg Config) *slog.Logger {
	w := cfg.Output
	if w == nil {
		// stdout carries the MCP stream, so logs never go there.
		w = os.Stderr
	}
	level := LevelFromString(cfg.Level)
	if cfg.Verbosity > 0 || cfg.Quiet {
		level = LevelFromVerbosity(cfg.Verbosity, cfg.Quiet)
	}

	if cfg.Format == JSONFormat {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(NewHumanHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewDiscardLogger creates a logger that drops everything.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewHumanHandler(io.Discard, &slog.HandlerOptions{Level: quietLevel}))
}

// LevelFromString converts debug/info/warn/error (case-insensitive) to a
// slog.Level. "quiet" and "off" suppress all output. Anything else is info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "quiet", "off":
		return quietLevel
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity maps CLI -v counts to a level.
// quiet wins; 0 is warn, 1 is info, 2+ is debug.
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	if quiet {
		return quietLevel
	}
	switch verbosity {
	case 0:
		return slog.LevelWarn
	case 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
