// Package logging builds the process logger and carries it through contexts.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	Output io.Writer

	File FileConfig
}

// FileConfig enables a rotated log file next to the console output.
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// New creates the process logger. The returned cleanup closes the log file
// and is never nil.
func New(cfg Config) (zerolog.Logger, func(), error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var console io.Writer = out
	if cfg.Format != "json" {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	cleanup := func() {}
	writer := console

	if cfg.File.Enabled {
		if cfg.File.Path == "" {
			return zerolog.Nop(), cleanup, fmt.Errorf("log file enabled but no path configured")
		}
		// 0700: log directory is owner-only
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0700); err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("failed to create log directory: %w", err)
		}

		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}
		writer = zerolog.MultiLevelWriter(console, fileWriter)
		cleanup = func() { _ = fileWriter.Close() }
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, cleanup, nil
}
