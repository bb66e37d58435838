// Package logging builds the leveled zerolog logger used by the worker.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	// Debug enables debug-level output (timing observations, cache hits).
	Debug bool `env:"DEBUG" envDefault:"false"`
	// JSON switches from the console writer to line-delimited JSON.
	JSON bool `env:"LOG_JSON" envDefault:"false"`
}

// New returns a logger tagged with service that writes to w.
func New(w io.Writer, service string, opts Options) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if !opts.JSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Logf adapts logger to the printf-style hooks taken by platform helpers.
// Messages are emitted at debug level.
func Logf(logger zerolog.Logger) func(string, ...any) {
	return func(format string, args ...any) {
		logger.Debug().Msgf(format, args...)
	}
}
