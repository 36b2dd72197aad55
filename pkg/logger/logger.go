// Package logger configures log/slog for traymenu binaries.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// EnvVarLogLevel is the environment variable name for setting the log level.
	EnvVarLogLevel = "LOG_LEVEL"

	// EnvVarLogFormat selects the handler: "json" (default) or "text".
	EnvVarLogFormat = "LOG_FORMAT"
)

// Config describes a structured logger.
type Config struct {
	Module  string
	Version string
	Level   string
	Format  string
}

// FromEnv returns a Config for module and version with the level and format
// taken from LOG_LEVEL and LOG_FORMAT.
func FromEnv(module, version string) Config {
	return Config{
		Module:  module,
		Version: version,
		Level:   os.Getenv(EnvVarLogLevel),
		Format:  os.Getenv(EnvVarLogFormat),
	}
}

// New creates a structured logger writing to w.
// The module name and version are attached to every record and source
// locations are included at debug level only.
func New(w io.Writer, cfg Config) *slog.Logger {
	lev := ParseLogLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     lev,
		AddSource: lev <= slog.LevelDebug,
	}

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	return slog.New(h).With("module", cfg.Module, "version", cfg.Version)
}

// SetDefault installs a stderr logger configured from the environment as
// the slog default.
func SetDefault(module, version string) {
	slog.SetDefault(New(os.Stderr, FromEnv(module, version)))
}

// ParseLogLevel converts a string representation of a log level into a slog.Level.
// Unrecognized values map to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
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
