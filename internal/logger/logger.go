// Package logger builds the daemon's single injected *slog.Logger.
//
// There is no package-level logger: New constructs one instance from
// Config and every collaborator (supervisor, scheduler, notifiers, store)
// receives it explicitly, so tests can observe output without touching
// process-wide state.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default log file rotation parameters.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes where and how the daemon logs.
type Config struct {
	Level      string `mapstructure:"level"` // debug, info, warn, error (default info)
	File       string `mapstructure:"file"`  // optional rotated log file path
	MaxSizeMB  int     `mapstructure:"max_size_mb"`
	MaxBackups int     `mapstructure:"max_backups"`
	MaxAgeDays int     `mapstructure:"max_age_days"`
	Compress   bool    `mapstructure:"compress"`
	NoColor    bool    `mapstructure:"no_color"` // disable ANSI colors on the console handler
}

func (c Config) level() slog.Level {
	switch strings.ToLower(c.Level) {
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

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// New builds the daemon logger from cfg. The returned closer flushes and
// closes the rotated file writer, if any, and is always non-nil.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: cfg.level()}

	var handlers []slog.Handler
	if cfg.NoColor {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
	} else {
		handlers = append(handlers, NewColorTextHandler(os.Stderr, opts, true))
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		fw := &lj.Logger{
			Filename:   cfg.File,
			MaxSize:    valOr(cfg.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(cfg.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(cfg.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   cfg.Compress,
		}
		handlers = append(handlers, slog.NewTextHandler(fw, opts))
		closer = fw
	}

	return slog.New(multiHandler{handlers: handlers}), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
