package value

// PruneEmpty recursively drops empty strings, empty sequences and empty
// mappings from v. False, zero and Null are kept. Containers that become
// empty after pruning are dropped as well. An empty root is returned as an
// empty value of its own kind.
func PruneEmpty(v Value) Value {
	pruned, _ := prune(v)
	return pruned
}

// prune returns the pruned value and whether it should be kept.
func prune(v Value) (Value, bool) {
	switch v.kind {
	case KindString:
		return v, v.s != ""
	case KindSequence:
		items := make([]Value, 0, len(v.seq))
		for _, item := range v.seq {
			if p, keep := prune(item); keep {
				items = append(items, p)
			}
		}
		if len(items) == 0 {
			return Sequence(), false
		}
		return Value{kind: KindSequence, seq: items}, true
	case KindMapping:
		b := NewBuilder()
		v.m.each(func(key string, val Value) bool {
			if p, keep := prune(val); keep {
				b.Set(key, p)
			}
			return true
		})
		if b.Len() == 0 {
			return EmptyMapping(), false
		}
		return b.Build(), true
	default:
		return v, true
	}
}
