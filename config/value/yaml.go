package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FromYAMLNode converts a parsed YAML node into a Value. Mapping order,
// aliases and merge keys (<<) are honored. Scalars resolve by their YAML
// tag; timestamps and other non-core tags become strings.
func FromYAMLNode(n *yaml.Node) (Value, error) {
	if n == nil {
		return Null(), nil
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return EmptyMapping(), nil
		}
		return FromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, child := range n.Content {
			item, err := FromYAMLNode(child)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindSequence, seq: items}, nil
	case yaml.MappingNode:
		return yamlMapping(n)
	case yaml.ScalarNode:
		return yamlScalar(n)
	default:
		return Value{}, fmt.Errorf("yaml: line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}

func yamlMapping(n *yaml.Node) (Value, error) {
	if len(n.Content)%2 != 0 {
		return Value{}, fmt.Errorf("yaml: line %d: odd number of mapping nodes", n.Line)
	}

	b := NewBuilder()
	var merges []Value
	for i := 0; i < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind == yaml.ScalarNode && keyNode.ShortTag() == "!!merge" {
			merged, err := FromYAMLNode(valNode)
			if err != nil {
				return Value{}, err
			}
			merges = append(merges, merged)
			continue
		}
		if keyNode.Kind != yaml.ScalarNode {
			return Value{}, fmt.Errorf("yaml: line %d: mapping key must be a scalar", keyNode.Line)
		}
		val, err := FromYAMLNode(valNode)
		if err != nil {
			return Value{}, err
		}
		b.Set(keyNode.Value, val)
	}

	// Merged entries never override explicit keys.
	for _, merged := range merges {
		sources := []Value{merged}
		if merged.kind == KindSequence {
			sources = merged.seq
		}
		for _, src := range sources {
			src.Range(func(key string, val Value) bool {
				if _, exists := b.Get(key); !exists {
					b.Set(key, val)
				}
				return true
			})
		}
	}

	return b.Build(), nil
}

func yamlScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return Float(f), nil
	default:
		return String(n.Value), nil
	}
}

// ToYAMLNode converts v into a YAML node tree, preserving mapping order.
func ToYAMLNode(v Value) *yaml.Node {
	switch v.kind {
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.b)}
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.i, 10)}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: yamlFloat(v.f)}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.s}
	case KindSequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.seq {
			n.Content = append(n.Content, ToYAMLNode(item))
		}
		return n
	case KindMapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		v.m.each(func(key string, val Value) bool {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				ToYAMLNode(val))
			return true
		})
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	default:
		return formatFloat(f)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (any, error) {
	return ToYAMLNode(v), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	decoded, err := FromYAMLNode(n)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// EncodeYAML renders v as a YAML document with two-space indentation.
func EncodeYAML(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ToYAMLNode(v)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
