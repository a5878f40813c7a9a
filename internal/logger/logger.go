// Package logger builds the zerolog loggers shared by the server and the CLI.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Logger = zerolog.Logger

type Fields map[string]interface{}

// New returns a logger for the given environment.  "dev" and "local" get a
// human readable console writer on stderr, anything else JSON lines.
func New(env string) Logger {
	var out io.Writer = os.Stderr
	level := zerolog.InfoLevel
	if env == "dev" || env == "local" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything.  Used by tests and by the
// CLI when --verbose is off.
func Nop() Logger { return zerolog.Nop() }

// With attaches fields to a copy of logger.
func With(logger Logger, fields Fields) Logger {
	return logger.With().Fields(map[string]interface{}(fields)).Logger()
}
