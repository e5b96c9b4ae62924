// Package loader provides configuration source loading for stratum.
//
// The loader package detects the syntax of configuration files (JSON, JSONC,
// TOML, YAML and env-style KEY=value files), parses them into value trees,
// caches parsed files by modification time, and structures prefixed
// environment variables into nested mappings.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/stratum/config/value"
)

// Format identifies a configuration syntax.
type Format uint8

const (
	// FormatUnknown means no syntax was recognized.
	FormatUnknown Format = iota
	// FormatJSON is strict JSON.
	FormatJSON
	// FormatJSONC is JSON with comments and trailing commas.
	FormatJSONC
	// FormatTOML is TOML.
	FormatTOML
	// FormatYAML is YAML.
	FormatYAML
	// FormatEnv is the KEY=value line format.
	FormatEnv
)

// String returns the canonical name of the format.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatJSONC:
		return "jsonc"
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	case FormatEnv:
		return "env"
	default:
		return "unknown"
	}
}

// Extensions lists the file extensions tried for each format in discovery
// order.
var Extensions = []string{".toml", ".yaml", ".yml", ".json", ".jsonc"}

// ParseFormatName returns the format with the given name. Common aliases
// such as "yml" and "dotenv" are accepted.
func ParseFormatName(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json":
		return FormatJSON, nil
	case "jsonc":
		return FormatJSONC, nil
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "env", "dotenv":
		return FormatEnv, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown config format %q", name)
	}
}

// FormatForPath returns the format implied by the file name, or
// FormatUnknown when the extension is absent or unrecognized. Files named
// ".env" or ".env.<suffix>" are env-style.
func FormatForPath(path string) Format {
	base := strings.ToLower(filepath.Base(path))
	if base == ".env" || strings.HasPrefix(base, ".env.") {
		return FormatEnv
	}

	switch filepath.Ext(base) {
	case ".json":
		return FormatJSON
	case ".jsonc":
		return FormatJSONC
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	case ".env":
		return FormatEnv
	default:
		return FormatUnknown
	}
}

// Document is a parsed configuration file.
type Document struct {
	// Path is the canonical path the document was read from.
	Path string
	// Format is the syntax the document was parsed with.
	Format Format
	// Value is the parsed content.
	Value value.Value
	// Cached reports whether the value came from the file cache.
	Cached bool
}
