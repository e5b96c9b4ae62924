package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/dshills/stratum/internal/logging"
)

// Settings configures the CLI itself. Flags override these.
type Settings struct {
	LogLevel string `env:"STRATUM_LOG_LEVEL"`
	Verbose  int    `env:"STRATUM_VERBOSE"`
	Pretty   bool   `env:"STRATUM_PRETTY"`
}

// LoadSettings reads Settings from environ, given as "KEY=value" pairs.
func LoadSettings(environ []string) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Environment: env.ToMap(environ)}); err != nil {
		return Settings{}, fmt.Errorf("reading STRATUM_* settings: %w", err)
	}
	return s, nil
}

func (s Settings) logging() logging.Config {
	return logging.Config{Level: s.LogLevel, Verbosity: s.Verbose, Pretty: s.Pretty}
}
