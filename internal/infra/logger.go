package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"donationledger/internal/domain"
)

// NewLogger writes JSON lines to stdout tagged with service=donationledger.
// Development gets debug level and the console writer.
func NewLogger(appEnv string) zerolog.Logger {
	return NewLoggerTo(appEnv, os.Stdout)
}

// NewLoggerTo is NewLogger with an explicit destination. The admin CLI logs to
// stderr so its stdout stays machine readable.
func NewLoggerTo(appEnv string, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "donationledger").
		Logger()
}

// ForBackend tags every entry with the store that produced it. Adapters and
// the ledger log through it so entries can be filtered by backend=sqlite,
// backend=postgres or backend=memory.
func ForBackend(logger zerolog.Logger, kind domain.BackendKind) zerolog.Logger {
	return logger.With().Str("backend", string(kind)).Logger()
}
