// Package layer provides configuration layers and the array-aware merge
// engine for stratum.
//
// A Layer pairs a value tree with metadata describing where it came from.
// Layers are merged in order: later layers override earlier ones, mappings
// merge recursively, and sibling "<name>_add" / "<name>_remove" keys edit
// the array stored under <name>.
package layer

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dshills/stratum/config/value"
)

// Kind indicates where a configuration layer came from.
type Kind uint8

const (
	// KindDefaults represents programmatic defaults.
	KindDefaults Kind = iota
	// KindFile represents a configuration file.
	KindFile
	// KindEnvironment represents environment variables.
	KindEnvironment
	// KindOverride represents caller-supplied overrides such as CLI flags.
	KindOverride
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindDefaults:
		return "defaults"
	case KindFile:
		return "file"
	case KindEnvironment:
		return "environment"
	case KindOverride:
		return "override"
	default:
		return "unknown"
	}
}

// Meta records the provenance of a layer. It never affects merging.
type Meta struct {
	// Kind is the source category.
	Kind Kind

	// Location is the file path, the environment prefix, or a free-form
	// label for defaults and overrides.
	Location string

	// Line is an optional line within Location.
	Line int

	// Format is the syntax a file layer was parsed with.
	Format string
}

// String returns "kind:location" or just the kind.
func (m Meta) String() string {
	if m.Location == "" {
		return m.Kind.String()
	}
	if m.Line > 0 {
		return fmt.Sprintf("%s:%s:%d", m.Kind, m.Location, m.Line)
	}
	return m.Kind.String() + ":" + m.Location
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (m Meta) MarshalZerologObject(e *zerolog.Event) {
	e.Str("kind", m.Kind.String())
	if m.Location != "" {
		e.Str("location", m.Location)
	}
	if m.Line > 0 {
		e.Int("line", m.Line)
	}
	if m.Format != "" {
		e.Str("format", m.Format)
	}
}

// Layer is one source's contribution to a composition. Layers are values;
// the tree they hold is immutable.
type Layer struct {
	Value value.Value
	Meta  Meta
}

// New creates a layer.
func New(kind Kind, location string, v value.Value) Layer {
	return Layer{Value: v, Meta: Meta{Kind: kind, Location: location}}
}

// Values returns the value of every layer, in order.
func Values(layers []Layer) []value.Value {
	out := make([]value.Value, len(layers))
	for i, l := range layers {
		out[i] = l.Value
	}
	return out
}
