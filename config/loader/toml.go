package loader

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"

	"github.com/dshills/stratum/config/value"
)

// tomlValue decodes a TOML document. Values come from the go-toml decoder,
// which yields Go maps; mapping keys are then put back in document order
// using the positions recorded by the unstable parser.
func tomlValue(data []byte) (value.Value, error) {
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return value.Value{}, err
	}
	v, err := value.FromInterface(m)
	if err != nil {
		return value.Value{}, err
	}
	return tomlKeyOrder(data).apply(v, ""), nil
}

// keyOrder maps a key path, segments joined by NUL, to the position at
// which it first appears in the document.
type keyOrder map[string]int

func tomlKeyOrder(data []byte) keyOrder {
	order := keyOrder{}
	var p unstable.Parser
	p.Reset(data)

	var table []string
	for p.NextExpression() {
		e := p.Expression()
		switch e.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = keyParts(e.Key())
			order.add(table)
		case unstable.KeyValue:
			path := append(slices.Clone(table), keyParts(e.Key())...)
			order.add(path)
			order.addNested(e.Value(), path)
		}
	}
	return order
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

func (o keyOrder) add(path []string) {
	for i := range path {
		k := strings.Join(path[:i+1], "\x00")
		if _, ok := o[k]; !ok {
			o[k] = len(o)
		}
	}
}

// addNested records inline table keys. Elements of arrays share the
// array's path.
func (o keyOrder) addNested(n *unstable.Node, path []string) {
	switch n.Kind {
	case unstable.InlineTable:
		it := n.Children()
		for it.Next() {
			kv := it.Node()
			sub := append(slices.Clone(path), keyParts(kv.Key())...)
			o.add(sub)
			o.addNested(kv.Value(), sub)
		}
	case unstable.Array:
		it := n.Children()
		for it.Next() {
			o.addNested(it.Node(), path)
		}
	}
}

func (o keyOrder) rank(path string) int {
	if pos, ok := o[path]; ok {
		return pos
	}
	return math.MaxInt
}

func (o keyOrder) apply(v value.Value, path string) value.Value {
	join := func(key string) string {
		if path == "" {
			return key
		}
		return path + "\x00" + key
	}

	switch v.Kind() {
	case value.KindSequence:
		items := v.Items()
		for i, item := range items {
			items[i] = o.apply(item, path)
		}
		return value.Sequence(items...)

	case value.KindMapping:
		keys := v.Keys()
		slices.SortStableFunc(keys, func(a, b string) int {
			return cmp.Compare(o.rank(join(a)), o.rank(join(b)))
		})
		b := value.NewBuilder()
		for _, k := range keys {
			child, _ := v.Get(k)
			b.Set(k, o.apply(child, join(k)))
		}
		return b.Build()
	}
	return v
}
