package value

import (
	"bytes"
	"errors"

	"github.com/pelletier/go-toml/v2"
)

// ErrTOMLRoot is returned when encoding a non-mapping value as TOML.
var ErrTOMLRoot = errors.New("toml: document root must be a mapping")

// EncodeTOML renders a mapping as a TOML document. TOML has no null, so
// Null entries are omitted. Table keys are emitted in sorted order.
func EncodeTOML(v Value) ([]byte, error) {
	if v.kind != KindMapping {
		return nil, ErrTOMLRoot
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(stripNulls(v).Interface()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stripNulls(v Value) Value {
	switch v.kind {
	case KindSequence:
		items := make([]Value, 0, len(v.seq))
		for _, item := range v.seq {
			if item.kind == KindNull {
				continue
			}
			items = append(items, stripNulls(item))
		}
		return Value{kind: KindSequence, seq: items}
	case KindMapping:
		b := NewBuilder()
		v.m.each(func(key string, val Value) bool {
			if val.kind != KindNull {
				b.Set(key, stripNulls(val))
			}
			return true
		})
		return b.Build()
	default:
		return v
	}
}
