package config

import (
	"strings"

	"github.com/dshills/stratum/config/loader"
)

// Standard builds the usual composition for an application:
//
//  1. defaults, when non-nil
//  2. every file found by hierarchical discovery for app
//  3. the file named by <envPrefix>_CONFIG, when that variable is set
//  4. environment variables under envPrefix, except <envPrefix>_CONFIG
//
// Callers typically finish with WithOverride for command-line flags. An
// empty envPrefix skips steps 3 and 4.
func Standard(app, envPrefix string, defaults any, opts ...Option) *Composition {
	c := New(opts...).
		WithDefaults(defaults).
		WithHierarchical(app)

	if envPrefix == "" {
		return c
	}
	fileVar := envPrefix + "_CONFIG"
	if path, ok := lookupEnv(c.opts.environ(), fileVar); ok && path != "" {
		c = c.WithFile(path)
	}
	return c.WithEnvironment(envPrefix, loader.Exclude(fileVar))
}

func lookupEnv(environ []string, name string) (string, bool) {
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if ok && key == name {
			return val, true
		}
	}
	return "", false
}
