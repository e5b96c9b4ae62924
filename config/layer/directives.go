package layer

import (
	"strconv"
	"strings"

	"github.com/dshills/stratum/config/value"
)

// Directive key suffixes.
const (
	AddSuffix    = "_add"
	RemoveSuffix = "_remove"
)

// Conflict describes array directives that were dropped without being
// applied.
type Conflict struct {
	// Path is the dotted path of the base key.
	Path string
	// Reason explains why the directives were skipped.
	Reason string
}

// String returns "path: reason".
func (c Conflict) String() string {
	return c.Path + ": " + c.Reason
}

// DirectiveBase returns the base key a directive key refers to. A key that
// is exactly "_add" or "_remove" is an ordinary key.
func DirectiveBase(key string) (string, bool) {
	for _, suffix := range []string{AddSuffix, RemoveSuffix} {
		if len(key) > len(suffix) && strings.HasSuffix(key, suffix) {
			return key[:len(key)-len(suffix)], true
		}
	}
	return "", false
}

// HasDirectives reports whether any mapping in v, at any depth, holds a
// directive key.
func HasDirectives(v value.Value) bool {
	switch v.Kind() {
	case value.KindMapping:
		found := false
		v.Range(func(key string, child value.Value) bool {
			if _, ok := DirectiveBase(key); ok || HasDirectives(child) {
				found = true
				return false
			}
			return true
		})
		return found
	case value.KindSequence:
		for _, item := range v.Items() {
			if HasDirectives(item) {
				return true
			}
		}
	}
	return false
}

// ResolveDirectives applies every "<name>_add" and "<name>_remove" key in v.
//
// For each base name the result starts from the current array under <name>
// (empty when absent or null), appends the _add elements in order, and then
// drops every element deeply equal to any _remove element. Directive keys
// never survive. The resolved array keeps the base key's position, or takes
// the first directive's position when the base was absent.
//
// When the base holds something other than an array, or a directive value
// is not an array, the base is left untouched, the directive keys are
// dropped and a Conflict is reported. Nested mappings, including mappings
// inside sequences, are resolved first.
func ResolveDirectives(v value.Value) (value.Value, []Conflict) {
	if !HasDirectives(v) {
		return v, nil
	}
	var conflicts []Conflict
	out := resolve(v, "", &conflicts)
	return out, conflicts
}

func resolve(v value.Value, path string, conflicts *[]Conflict) value.Value {
	switch v.Kind() {
	case value.KindMapping:
		return resolveMapping(v, path, conflicts)
	case value.KindSequence:
		items := v.Items()
		for i := range items {
			items[i] = resolve(items[i], joinPath(path, strconv.Itoa(i)), conflicts)
		}
		return value.Sequence(items...)
	default:
		return v
	}
}

func resolveMapping(v value.Value, path string, conflicts *[]Conflict) value.Value {
	// Children first, so directive values and bases are already resolved.
	children := value.NewBuilder()
	var bases []string
	seenBase := make(map[string]bool)
	v.Range(func(key string, child value.Value) bool {
		children.Set(key, resolve(child, joinPath(path, key), conflicts))
		if base, ok := DirectiveBase(key); ok && !seenBase[base] {
			seenBase[base] = true
			bases = append(bases, base)
		}
		return true
	})
	m := children.Build()
	if len(bases) == 0 {
		return m
	}

	resolved := make(map[string]value.Value, len(bases))
	for _, base := range bases {
		if arr, ok := applyDirectives(m, base, joinPath(path, base), conflicts); ok {
			resolved[base] = arr
		}
	}

	out := value.NewBuilder()
	emitted := make(map[string]bool, len(bases))
	m.Range(func(key string, child value.Value) bool {
		if base, ok := DirectiveBase(key); ok && seenBase[base] {
			if arr, ok := resolved[base]; ok && !m.Has(base) && !emitted[base] {
				out.Set(base, arr)
				emitted[base] = true
			}
			return true
		}
		if arr, ok := resolved[key]; ok {
			out.Set(key, arr)
			emitted[key] = true
			return true
		}
		out.Set(key, child)
		return true
	})
	return out.Build()
}

// applyDirectives computes the array for base. It returns false when the
// base should be left as it is.
func applyDirectives(m value.Value, base, path string, conflicts *[]Conflict) (value.Value, bool) {
	baseVal, hasBase := m.Get(base)
	addVal, hasAdd := m.Get(base + AddSuffix)
	removeVal, hasRemove := m.Get(base + RemoveSuffix)

	if hasBase && !baseVal.IsNull() && !baseVal.IsSequence() {
		*conflicts = append(*conflicts, Conflict{
			Path:   path,
			Reason: "array directives skipped: base is a " + baseVal.Kind().String() + ", not a sequence",
		})
		return value.Value{}, false
	}
	if hasAdd && !addVal.IsSequence() {
		*conflicts = append(*conflicts, Conflict{
			Path:   path,
			Reason: base + AddSuffix + " is a " + addVal.Kind().String() + ", not a sequence",
		})
		return value.Value{}, false
	}
	if hasRemove && !removeVal.IsSequence() {
		*conflicts = append(*conflicts, Conflict{
			Path:   path,
			Reason: base + RemoveSuffix + " is a " + removeVal.Kind().String() + ", not a sequence",
		})
		return value.Value{}, false
	}

	items := baseVal.Items()
	items = append(items, addVal.Items()...)

	if hasRemove {
		drop := removeVal.Items()
		kept := items[:0]
		for _, item := range items {
			if !containsEqual(drop, item) {
				kept = append(kept, item)
			}
		}
		items = kept
	}

	return value.Sequence(items...), true
}

func containsEqual(set []value.Value, v value.Value) bool {
	for _, candidate := range set {
		if value.Equal(candidate, v) {
			return true
		}
	}
	return false
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
