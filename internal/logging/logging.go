// Package logging provides zerolog setup for FAIR Combine. Log output
// goes to a console writer on stderr and, when configured, to a
// size-rotated file sink.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/faircombine/faircombine/internal/config"
)

// Setup builds the root logger from the logging configuration.
// Unknown level strings fall back to info rather than failing startup.
func Setup(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	var sink io.Writer = console
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		sink = zerolog.MultiLevelWriter(console, rotated)
	}

	return zerolog.New(sink).Level(level).With().Timestamp().Logger()
}
