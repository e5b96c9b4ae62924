package layer

import (
	"sort"

	"github.com/dshills/stratum/config/value"
)

// DeepMerge recursively merges src into dst and returns the result.
// Values in src override values in dst, including changes of type.
// Mappings are merged key by key: existing keys keep their position and new
// keys are appended. Neither input is modified.
func DeepMerge(dst, src value.Value) value.Value {
	if !dst.IsMapping() || !src.IsMapping() {
		return src
	}

	b := value.BuilderFrom(dst)
	src.Range(func(key string, srcVal value.Value) bool {
		if dstVal, exists := b.Get(key); exists && dstVal.IsMapping() && srcVal.IsMapping() {
			b.Set(key, DeepMerge(dstVal, srcVal))
		} else {
			b.Set(key, srcVal)
		}
		return true
	})
	return b.Build()
}

// Merge folds values left to right with DeepMerge and then resolves array
// directives on the result. With no values it returns an empty mapping.
func Merge(values ...value.Value) value.Value {
	v, _ := MergeReport(values...)
	return v
}

// MergeReport is Merge, also returning the directives that could not be
// applied.
func MergeReport(values ...value.Value) (value.Value, []Conflict) {
	if len(values) == 0 {
		return value.EmptyMapping(), nil
	}

	merged := values[0]
	for _, v := range values[1:] {
		merged = DeepMerge(merged, v)
	}
	return ResolveDirectives(merged)
}

// MergeIncremental resolves array directives after every fold instead of
// once at the end, so each value's directives apply to the arrays
// accumulated so far.
func MergeIncremental(values ...value.Value) (value.Value, []Conflict) {
	if len(values) == 0 {
		return value.EmptyMapping(), nil
	}

	merged, conflicts := ResolveDirectives(values[0])
	for _, v := range values[1:] {
		var more []Conflict
		merged, more = ResolveDirectives(DeepMerge(merged, v))
		conflicts = append(conflicts, more...)
	}
	return merged, conflicts
}

// Diff returns the leaf paths added, modified and removed between two
// trees, each sorted.
func Diff(old, new value.Value) (added, modified, removed []string) {
	oldFlat := value.Flatten(old)
	newFlat := value.Flatten(new)

	for path, newVal := range newFlat {
		if oldVal, exists := oldFlat[path]; exists {
			if !value.Equal(oldVal, newVal) {
				modified = append(modified, path)
			}
		} else {
			added = append(added, path)
		}
	}

	for path := range oldFlat {
		if _, exists := newFlat[path]; !exists {
			removed = append(removed, path)
		}
	}

	sort.Strings(added)
	sort.Strings(modified)
	sort.Strings(removed)
	return added, modified, removed
}
