package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the process logger. JSON to stdout by default; LOG_PRETTY=true
// switches to the human console writer for local development.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	var out = zerolog.New(os.Stdout)
	if os.Getenv("LOG_PRETTY") == "true" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
	return out.Level(lvl).With().Timestamp().Str("service", "authgate").Logger()
}
