package value

import (
	"strconv"
	"strings"
)

// SplitPath splits a dot-separated path into segments. The empty path has
// no segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Lookup retrieves a nested value using a dot-separated path. Numeric
// segments index into sequences.
func (v Value) Lookup(path string) (Value, bool) {
	return v.LookupSegments(SplitPath(path))
}

// LookupSegments retrieves a nested value by path segments.
func (v Value) LookupSegments(segments []string) (Value, bool) {
	current := v
	for _, seg := range segments {
		switch current.kind {
		case KindMapping:
			next, ok := current.m.get(seg)
			if !ok {
				return Value{}, false
			}
			current = next
		case KindSequence:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return Value{}, false
			}
			next, ok := current.Index(idx)
			if !ok {
				return Value{}, false
			}
			current = next
		default:
			return Value{}, false
		}
	}
	return current, true
}

// SetPath returns a copy of v with leaf stored at the given segments.
// Intermediate mappings are created as needed; an intermediate value that is
// not a mapping is replaced by one.
func SetPath(v Value, segments []string, leaf Value) Value {
	if len(segments) == 0 {
		return leaf
	}
	child, _ := v.Get(segments[0])
	return v.With(segments[0], SetPath(child, segments[1:], leaf))
}

// DeletePath returns a copy of v without the value at the given segments.
// It reports whether anything was removed.
func DeletePath(v Value, segments []string) (Value, bool) {
	if len(segments) == 0 || v.kind != KindMapping {
		return v, false
	}
	child, ok := v.Get(segments[0])
	if !ok {
		return v, false
	}
	if len(segments) == 1 {
		return v.Without(segments[0]), true
	}
	updated, removed := DeletePath(child, segments[1:])
	if !removed {
		return v, false
	}
	return v.With(segments[0], updated), true
}

// Flatten returns the leaves of a mapping keyed by dot-separated path.
// Sequences are leaves.
func Flatten(v Value) map[string]Value {
	out := make(map[string]Value)
	flatten(v, "", out)
	return out
}

func flatten(v Value, prefix string, out map[string]Value) {
	if v.kind != KindMapping {
		if prefix != "" {
			out[prefix] = v
		}
		return
	}
	v.m.each(func(key string, val Value) bool {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if val.kind == KindMapping && val.m.len() > 0 {
			flatten(val, full, out)
		} else {
			out[full] = val
		}
		return true
	})
}
