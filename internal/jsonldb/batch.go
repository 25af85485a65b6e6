// Provides atomic multi-row writes.

package jsonldb

import (
	"fmt"
	"slices"

	"github.com/maruel/ksid"
)

// MaxBatchOps is the maximum number of operations in one atomic batch.
// Multi-row mutations larger than this must be chunked into multiple
// commits; see [Chunk].
const MaxBatchOps = 500

type opKind int

const (
	opPut opKind = iota
	opUpdate
	opDelete
)

type op[T Row[T]] struct {
	kind opKind
	row  T       // put, update
	id   ksid.ID // delete
}

// Batch accumulates row operations and commits them as one atomic unit:
// either every operation applies or none does, and observers and
// subscribers see the result as a single change.
type Batch[T Row[T]] struct {
	table *Table[T]
	ops   []op[T]
}

// NewBatch starts an empty batch against the table.
func (t *Table[T]) NewBatch() *Batch[T] {
	return &Batch[T]{table: t}
}

// Put queues an insert of a new row.
func (b *Batch[T]) Put(row T) *Batch[T] {
	b.ops = append(b.ops, op[T]{kind: opPut, row: row.Clone()})
	return b
}

// Update queues a replacement of an existing row.
func (b *Batch[T]) Update(row T) *Batch[T] {
	b.ops = append(b.ops, op[T]{kind: opUpdate, row: row.Clone()})
	return b
}

// Delete queues a removal by ID.
func (b *Batch[T]) Delete(id ksid.ID) *Batch[T] {
	b.ops = append(b.ops, op[T]{kind: opDelete, id: id})
	return b
}

// Len returns the number of queued operations.
func (b *Batch[T]) Len() int {
	return len(b.ops)
}

// Commit applies all queued operations atomically. The whole batch is
// validated and applied to a scratch copy of the row set first; any failure
// aborts with the table unchanged. On success the file is rewritten once and
// observers and subscribers are notified once.
//
// Commit fails if the batch holds more than MaxBatchOps operations.
func (b *Batch[T]) Commit() error {
	if len(b.ops) == 0 {
		return nil
	}
	if len(b.ops) > MaxBatchOps {
		return fmt.Errorf("batch of %d operations exceeds limit of %d", len(b.ops), MaxBatchOps)
	}

	t := b.table
	t.mu.Lock()
	defer t.mu.Unlock()

	final, err := b.replayLocked()
	if err != nil {
		return err
	}
	if err := t.persistLocked(final); err != nil {
		return err
	}
	t.installLocked(final)
	b.ops = nil
	return nil
}

// replayLocked applies the queued operations to a scratch copy of the row
// set and returns the resulting rows in ID order. Any failure returns
// before the table is touched. The table's write lock must be held.
func (b *Batch[T]) replayLocked() ([]T, error) {
	t := b.table
	scratch := make(map[ksid.ID]T, len(t.rows)+len(b.ops))
	for _, row := range t.rows {
		scratch[row.GetID()] = row
	}

	for _, o := range b.ops {
		switch o.kind {
		case opPut:
			if err := o.row.Validate(); err != nil {
				return nil, fmt.Errorf("invalid row %s: %w", o.row.GetID(), err)
			}
			if _, ok := scratch[o.row.GetID()]; ok {
				return nil, fmt.Errorf("row %s already exists in %s", o.row.GetID(), t.path)
			}
			scratch[o.row.GetID()] = o.row
		case opUpdate:
			if err := o.row.Validate(); err != nil {
				return nil, fmt.Errorf("invalid row %s: %w", o.row.GetID(), err)
			}
			if _, ok := scratch[o.row.GetID()]; !ok {
				return nil, fmt.Errorf("row %s not found in %s", o.row.GetID(), t.path)
			}
			scratch[o.row.GetID()] = o.row
		case opDelete:
			if _, ok := scratch[o.id]; !ok {
				return nil, fmt.Errorf("row %s not found in %s", o.id, t.path)
			}
			delete(scratch, o.id)
		}
	}

	// Materialize in ID order. Untouched rows are cloned so callers holding
	// batch rows cannot alias table state.
	final := make([]T, 0, len(scratch))
	for _, row := range scratch {
		final = append(final, row.Clone())
	}
	sortRowsByID(final)
	return final, nil
}

// CommitPair applies two batches against two distinct tables holding the
// same row type as one unit. Both batches are replayed against scratch
// copies before either file is touched, both files are rewritten while both
// locks are held, and each table notifies once. Archive moves use this so a
// failure cannot leave a row in both tables, or in neither.
//
// The combined operation count is bounded by MaxBatchOps.
func CommitPair[T Row[T]](a, b *Batch[T]) error {
	if a.table == b.table {
		return fmt.Errorf("pair commit requires two distinct tables")
	}
	if a.Len()+b.Len() == 0 {
		return nil
	}
	if a.Len()+b.Len() > MaxBatchOps {
		return fmt.Errorf("batch of %d operations exceeds limit of %d", a.Len()+b.Len(), MaxBatchOps)
	}

	// Lock in path order so concurrent pair commits cannot deadlock.
	first, second := a.table, b.table
	if second.path < first.path {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	finalA, err := a.replayLocked()
	if err != nil {
		return err
	}
	finalB, err := b.replayLocked()
	if err != nil {
		return err
	}

	prevA := a.table.rows
	if err := a.table.persistLocked(finalA); err != nil {
		return err
	}
	if err := b.table.persistLocked(finalB); err != nil {
		// Put the first file back so the pair stays consistent on disk.
		if rerr := a.table.persistLocked(prevA); rerr != nil {
			return fmt.Errorf("%w (rollback of %s also failed: %v)", err, a.table.path, rerr)
		}
		return err
	}
	a.table.installLocked(finalA)
	b.table.installLocked(finalB)
	a.ops, b.ops = nil, nil
	return nil
}

func sortRowsByID[T Row[T]](rows []T) {
	slices.SortFunc(rows, func(a, b T) int {
		return compareID(a.GetID(), b.GetID())
	})
}

// Chunk splits n items into chunks of at most MaxBatchOps, invoking fn with
// the [start, end) bounds of each chunk. fn errors abort remaining chunks;
// chunks already committed stay committed (cascade deletes are best-effort,
// not transactional across chunks).
func Chunk(n int, fn func(start, end int) error) error {
	for start := 0; start < n; start += MaxBatchOps {
		end := min(start+MaxBatchOps, n)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}
