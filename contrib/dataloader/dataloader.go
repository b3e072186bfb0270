// Package dataloader provides the generic reassemble-by-key primitives a
// batched load needs: requests go out in one order, results come back in
// whatever order their underlying calls complete, and the caller needs them
// restitched to the order that was asked for.
//
// compute uses this to fire one subsystem call per sibling row in a
// one-to-many relation's computed field concurrently, then reorder the
// results back onto the rows that asked for them.
package dataloader

import "errors"

// ErrNotFound is returned when a key has no corresponding value.
var ErrNotFound = errors.New("dataloader: value not found")

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys reorders values to match the order of requested keys. The
// values slice may arrive in any order (e.g. the completion order of
// concurrent calls); OrderByKeys restores the order the keys were asked in.
// A key with no corresponding value gets its zero value and ErrNotFound.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}

	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// GroupByKey groups values by a key function. Useful when a batch of rows
// shares a key and downstream code wants all of them together, e.g. every
// sibling row feeding the same foreign key.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped values to match the order of requested
// keys, producing one slice of values per key (empty if the key had none).
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}
