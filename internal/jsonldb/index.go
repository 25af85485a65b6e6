// Provides concurrent-safe, in-memory secondary indexes for tables.

package jsonldb

import (
	"sync"

	"github.com/maruel/ksid"
)

// Index provides O(1) lookup of row IDs by a non-unique secondary key.
//
// The index is built from existing table data when created and kept
// synchronized via the [TableObserver] interface. All operations are
// concurrent-safe.
type Index[K comparable, T Row[T]] struct {
	table   *Table[T]
	keyFunc func(T) K
	mu      sync.Mutex
	byKey   map[K]map[ksid.ID]struct{}
}

// NewIndex creates a non-unique index on the given table.
//
// The keyFunc extracts the index key from each row. Multiple rows
// may share the same key.
func NewIndex[K comparable, T Row[T]](table *Table[T], keyFunc func(T) K) *Index[K, T] {
	idx := &Index[K, T]{
		table:   table,
		keyFunc: keyFunc,
		byKey:   make(map[K]map[ksid.ID]struct{}),
	}
	table.AddObserver(idx)
	return idx
}

// Get returns clones of all rows with the given key, in ID order.
func (idx *Index[K, T]) Get(key K) []T {
	idx.mu.Lock()
	ids := make([]ksid.ID, 0, len(idx.byKey[key]))
	for id := range idx.byKey[key] {
		ids = append(ids, id)
	}
	idx.mu.Unlock()

	rows := make([]T, 0, len(ids))
	for _, id := range ids {
		// A row deleted between the two lookups yields the zero value.
		if row := idx.table.Get(id); !row.GetID().IsZero() {
			rows = append(rows, row)
		}
	}
	sortRowsByID(rows)
	return rows
}

// Count returns the number of rows with the given key.
func (idx *Index[K, T]) Count(key K) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.byKey[key])
}

// OnAppend implements [TableObserver].
func (idx *Index[K, T]) OnAppend(row T) {
	idx.mu.Lock()
	idx.add(idx.keyFunc(row), row.GetID())
	idx.mu.Unlock()
}

// OnUpdate implements [TableObserver].
func (idx *Index[K, T]) OnUpdate(prev, curr T) {
	oldKey := idx.keyFunc(prev)
	newKey := idx.keyFunc(curr)
	if oldKey == newKey {
		return
	}
	idx.mu.Lock()
	idx.remove(oldKey, prev.GetID())
	idx.add(newKey, curr.GetID())
	idx.mu.Unlock()
}

// OnDelete implements [TableObserver].
func (idx *Index[K, T]) OnDelete(row T) {
	idx.mu.Lock()
	idx.remove(idx.keyFunc(row), row.GetID())
	idx.mu.Unlock()
}

// OnReplace implements [TableObserver].
func (idx *Index[K, T]) OnReplace(rows []T) {
	idx.mu.Lock()
	idx.byKey = make(map[K]map[ksid.ID]struct{}, len(idx.byKey))
	for _, row := range rows {
		idx.add(idx.keyFunc(row), row.GetID())
	}
	idx.mu.Unlock()
}

func (idx *Index[K, T]) add(key K, id ksid.ID) {
	ids := idx.byKey[key]
	if ids == nil {
		ids = map[ksid.ID]struct{}{}
		idx.byKey[key] = ids
	}
	ids[id] = struct{}{}
}

func (idx *Index[K, T]) remove(key K, id ksid.ID) {
	ids := idx.byKey[key]
	delete(ids, id)
	if len(ids) == 0 {
		delete(idx.byKey, key)
	}
}
