// Package batch provides the key bookkeeping behind batched relation
// loads: collecting parent keys once and zipping grouped child rows back
// onto their parents.
//
//	parents := batch.Unique(models, pkOf)
//	grouped := batch.GroupByKey(children, parentKeyOf)
//	ordered := batch.OrderGroupsByKeys(keys, grouped)
//	// ordered[i] holds the children of keys[i]
package batch

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// Unique drops values whose key was already seen, keeping first-seen
// order. It also returns the keys of the kept values.
func Unique[K comparable, V any](values []V, keyFn KeyFunc[K, V]) ([]V, []K) {
	seen := make(map[K]struct{}, len(values))
	out := make([]V, 0, len(values))
	keys := make([]K, 0, len(values))
	for _, v := range values {
		k := keyFn(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
		keys = append(keys, k)
	}
	return out, keys
}

// GroupByKey groups values by a key function. Values keep their order
// within each group.
//
//	bakers := loadBakers(cakeIDs)
//	grouped := GroupByKey(bakers, func(b row) Key { return b.cakeID })
//	// grouped[cakeID] contains all bakers of that cake
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped values to match the order of the
// requested keys. Keys without a group get an empty, non-nil slice.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		if g, ok := groups[key]; ok {
			result[i] = g
		} else {
			result[i] = []V{}
		}
	}
	return result
}
