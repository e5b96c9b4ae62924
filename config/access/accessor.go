// Package access provides typed, path-based reads over a merged
// configuration tree.
package access

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dshills/stratum/config/value"
)

// ErrSettingNotFound is returned when a path is set neither in the values
// nor in the defaults.
var ErrSettingNotFound = errors.New("setting not found")

// ValueStore is the interface for accessing raw configuration values.
// value.Value satisfies it.
type ValueStore interface {
	// Lookup returns the value at the given dot-separated path.
	Lookup(path string) (value.Value, bool)
}

// Accessor provides type-safe access to configuration values.
// It reads from a value store and falls back to an optional defaults store.
type Accessor struct {
	values   ValueStore
	defaults ValueStore
}

// New creates an accessor over values.
func New(values ValueStore) *Accessor {
	return &Accessor{values: values}
}

// NewWithDefaults creates an accessor that consults defaults for paths
// missing from values.
func NewWithDefaults(values, defaults ValueStore) *Accessor {
	return &Accessor{values: values, defaults: defaults}
}

// Has reports whether path is set in the values or the defaults.
func (a *Accessor) Has(path string) bool {
	_, err := a.Get(path)
	return err == nil
}

// Get returns the raw value at the given path.
// If the value is not set, returns the value from the defaults.
// Returns ErrSettingNotFound if neither holds the path.
func (a *Accessor) Get(path string) (value.Value, error) {
	if a.values != nil {
		if v, ok := a.values.Lookup(path); ok {
			return v, nil
		}
	}
	if a.defaults != nil {
		if v, ok := a.defaults.Lookup(path); ok {
			return v, nil
		}
	}
	return value.Value{}, fmt.Errorf("%w: %s", ErrSettingNotFound, path)
}

// GetString returns a string value at the given path.
func (a *Accessor) GetString(path string) (string, error) {
	v, err := a.Get(path)
	if err != nil || v.IsNull() {
		return "", err
	}

	s, ok := v.AsString()
	if !ok {
		return "", typeError(path, "string", v)
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (a *Accessor) GetInt(path string) (int, error) {
	i, err := a.GetInt64(path)
	if err != nil {
		return 0, err
	}
	if i > math.MaxInt || i < math.MinInt {
		return 0, &TypeError{Path: path, Expected: "integer", Actual: "out of range integer"}
	}
	return int(i), nil
}

// GetInt64 returns an int64 value at the given path. Floats without a
// fractional part are accepted.
func (a *Accessor) GetInt64(path string) (int64, error) {
	v, err := a.Get(path)
	if err != nil || v.IsNull() {
		return 0, err
	}

	if i, ok := v.AsInt(); ok {
		return i, nil
	}
	if f, ok := v.AsFloat(); ok && f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f), nil
	}
	return 0, typeError(path, "integer", v)
}

// GetFloat64 returns a float64 value at the given path.
func (a *Accessor) GetFloat64(path string) (float64, error) {
	v, err := a.Get(path)
	if err != nil || v.IsNull() {
		return 0, err
	}

	f, ok := v.AsFloat()
	if !ok {
		return 0, typeError(path, "number", v)
	}
	return f, nil
}

// GetBool returns a boolean value at the given path.
func (a *Accessor) GetBool(path string) (bool, error) {
	v, err := a.Get(path)
	if err != nil || v.IsNull() {
		return false, err
	}

	b, ok := v.AsBool()
	if !ok {
		return false, typeError(path, "boolean", v)
	}
	return b, nil
}

// GetStringSlice returns a string slice value at the given path.
func (a *Accessor) GetStringSlice(path string) ([]string, error) {
	v, err := a.Get(path)
	if err != nil || v.IsNull() {
		return nil, err
	}

	if !v.IsSequence() {
		return nil, typeError(path, "string array", v)
	}

	items := v.Items()
	result := make([]string, len(items))
	for i, item := range items {
		s, ok := item.AsString()
		if !ok {
			return nil, &TypeError{
				Path:     path,
				Expected: "string array",
				Actual:   "array with " + item.Kind().String() + " element",
			}
		}
		result[i] = s
	}
	return result, nil
}

// GetDuration returns a time.Duration value at the given path.
// Accepts both duration strings (e.g., "500ms") and numbers (milliseconds).
func (a *Accessor) GetDuration(path string) (time.Duration, error) {
	v, err := a.Get(path)
	if err != nil || v.IsNull() {
		return 0, err
	}

	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string at %s: %w", path, err)
		}
		return d, nil
	case value.KindInt:
		i, _ := v.AsInt()
		return time.Duration(i) * time.Millisecond, nil
	case value.KindFloat:
		f, _ := v.AsFloat()
		return time.Duration(f * float64(time.Millisecond)), nil
	default:
		return 0, typeError(path, "duration", v)
	}
}

// GetMap returns a map value at the given path.
func (a *Accessor) GetMap(path string) (map[string]any, error) {
	v, err := a.Get(path)
	if err != nil || v.IsNull() {
		return nil, err
	}

	if !v.IsMapping() {
		return nil, typeError(path, "object", v)
	}
	m, _ := v.Interface().(map[string]any)
	return m, nil
}

// TypeError is returned when a type conversion fails.
type TypeError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error at %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

func typeError(path, expected string, v value.Value) *TypeError {
	return &TypeError{Path: path, Expected: expected, Actual: v.Kind().String()}
}
