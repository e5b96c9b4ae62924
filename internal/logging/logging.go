// Package logging builds the zerolog logger used by the stratum CLI.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Config holds logger configuration.
type Config struct {
	// Level is an explicit level name. It wins over Verbosity when it
	// parses.
	Level string
	// Verbosity is the number of -v flags given.
	Verbosity int
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Pretty forces human-readable console output. Without it, console
	// output is used only when Output is a terminal.
	Pretty bool
}

// LevelForVerbosity maps a -v count to a level: none logs warnings, -v
// info, -vv debug and -vvv or more everything.
func LevelForVerbosity(n int) zerolog.Level {
	switch {
	case n <= 0:
		return zerolog.WarnLevel
	case n == 1:
		return zerolog.InfoLevel
	case n == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// ParseLevel parses a level name (case-insensitive). "warning" is
// accepted for warn.
func ParseLevel(level string) (zerolog.Level, bool) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.NoLevel, false
	}
	if level == "warning" {
		level = "warn"
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, false
	}
	return l, true
}

// ResolveLevel returns the level named by cfg.Level, falling back to the
// verbosity mapping.
func (cfg Config) ResolveLevel() zerolog.Level {
	if l, ok := ParseLevel(cfg.Level); ok {
		return l
	}
	return LevelForVerbosity(cfg.Verbosity)
}

// New creates a logger from cfg.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.Pretty || IsTerminal(out) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).
		Level(cfg.ResolveLevel()).
		With().
		Timestamp().
		Logger()
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
