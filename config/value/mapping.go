package value

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Pair is a single mapping entry.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for constructing a Pair.
func P(key string, v Value) Pair { return Pair{Key: key, Value: v} }

// mapping is the ordered storage behind a Mapping value. It is never
// mutated once it has been attached to a Value.
type mapping struct {
	om *orderedmap.OrderedMap[string, Value]
}

func newMapping() *mapping {
	return &mapping{om: orderedmap.New[string, Value]()}
}

func (m *mapping) len() int {
	if m == nil {
		return 0
	}
	return m.om.Len()
}

func (m *mapping) get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	return m.om.Get(key)
}

func (m *mapping) each(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

func (m *mapping) clone() *mapping {
	out := newMapping()
	m.each(func(key string, v Value) bool {
		out.om.Set(key, v)
		return true
	})
	return out
}

// NewMapping returns a mapping holding pairs in order. A repeated key keeps
// its first position and its last value.
func NewMapping(pairs ...Pair) Value {
	m := newMapping()
	for _, p := range pairs {
		m.om.Set(p.Key, p.Value)
	}
	return Value{kind: KindMapping, m: m}
}

// Get returns the value stored under key in a mapping.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	return v.m.get(key)
}

// Has reports whether a mapping holds key.
func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Keys returns the keys of a mapping in insertion order.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, v.m.len())
	v.m.each(func(key string, _ Value) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// Pairs returns the entries of a mapping in insertion order.
func (v Value) Pairs() []Pair {
	if v.kind != KindMapping {
		return nil
	}
	pairs := make([]Pair, 0, v.m.len())
	v.m.each(func(key string, val Value) bool {
		pairs = append(pairs, Pair{Key: key, Value: val})
		return true
	})
	return pairs
}

// Range calls fn for each mapping entry in insertion order until fn
// returns false.
func (v Value) Range(fn func(key string, v Value) bool) {
	if v.kind != KindMapping {
		return
	}
	v.m.each(fn)
}

// With returns a copy of the mapping with key set to val. An existing key
// keeps its position. Called on a non-mapping value, With starts from an
// empty mapping.
func (v Value) With(key string, val Value) Value {
	var m *mapping
	if v.kind == KindMapping {
		m = v.m.clone()
	} else {
		m = newMapping()
	}
	m.om.Set(key, val)
	return Value{kind: KindMapping, m: m}
}

// Without returns a copy of the mapping with key removed.
func (v Value) Without(key string) Value {
	if v.kind != KindMapping {
		return v
	}
	if _, ok := v.m.get(key); !ok {
		return v
	}
	m := v.m.clone()
	m.om.Delete(key)
	return Value{kind: KindMapping, m: m}
}

// Builder assembles a mapping in place. It is not safe for concurrent use.
// Build hands the accumulated entries to an immutable Value and resets the
// builder.
type Builder struct {
	m *mapping
}

// NewBuilder returns an empty mapping builder.
func NewBuilder() *Builder {
	return &Builder{m: newMapping()}
}

// BuilderFrom returns a builder seeded with the entries of a mapping.
func BuilderFrom(v Value) *Builder {
	if v.kind != KindMapping {
		return NewBuilder()
	}
	return &Builder{m: v.m.clone()}
}

func (b *Builder) ensure() {
	if b.m == nil {
		b.m = newMapping()
	}
}

// Set stores val under key. An existing key keeps its position.
func (b *Builder) Set(key string, val Value) *Builder {
	b.ensure()
	b.m.om.Set(key, val)
	return b
}

// Get returns the value currently stored under key.
func (b *Builder) Get(key string) (Value, bool) {
	b.ensure()
	return b.m.get(key)
}

// Delete removes key.
func (b *Builder) Delete(key string) *Builder {
	b.ensure()
	b.m.om.Delete(key)
	return b
}

// Len returns the number of entries accumulated so far.
func (b *Builder) Len() int {
	b.ensure()
	return b.m.len()
}

// Build returns the accumulated mapping and resets the builder.
func (b *Builder) Build() Value {
	b.ensure()
	v := Value{kind: KindMapping, m: b.m}
	b.m = nil
	return v
}
