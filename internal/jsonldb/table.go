package jsonldb

import (
	"bufio"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maruel/ksid"
)

// Row is implemented by types that can be stored in a Table.
type Row[T any] interface {
	// Clone returns a deep copy of the row.
	Clone() T
	// GetID returns the row's unique identifier.
	GetID() ksid.ID
	// Validate checks the row's internal consistency before persistence.
	Validate() error
}

// TableObserver is notified of committed table mutations. Observers are
// called while the table's write lock is held; they must not call back into
// the table.
type TableObserver[T Row[T]] interface {
	OnAppend(row T)
	OnUpdate(prev, curr T)
	OnDelete(row T)
	// OnReplace is called when the whole row set is swapped (batch commits
	// and reloads).
	OnReplace(rows []T)
}

// Table handles storage and in-memory caching for a single table in JSONL format.
type Table[T Row[T]] struct {
	path string
	mu   sync.RWMutex

	rows      []T
	observers []TableObserver[T]
	subs      map[*Subscription[T]]struct{}

	// lastWrite is the unix-nano time of this process's most recent write to
	// the backing file. See WroteSince.
	lastWrite atomic.Int64
}

// NewTable creates a new Table and loads all data from the file.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	table := &Table[T]{
		path: path,
		subs: map[*Subscription[T]]struct{}{},
	}

	if err := table.load(); err != nil {
		return nil, err
	}

	return table, nil
}

// Path returns the backing file path.
func (t *Table[T]) Path() string {
	return t.path
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadLocked()
}

func (t *Table[T]) loadLocked() error {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.rows = []T{}
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var rows []T
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row in %s: %w", t.path, err)
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}

	// Tolerate out-of-order files (clock drift, manual edits).
	slices.SortStableFunc(rows, func(a, b T) int {
		return compareID(a.GetID(), b.GetID())
	})

	t.rows = rows
	return nil
}

// Reload re-reads the backing file and notifies observers and subscribers.
// Used when the file changed on disk outside of this process.
func (t *Table[T]) Reload() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.loadLocked(); err != nil {
		return err
	}
	for _, o := range t.observers {
		o.OnReplace(t.rows)
	}
	t.notifyLocked()
	return nil
}

// WroteSince reports whether this process wrote the backing file at or
// after the given time. Used by file watchers to tell external edits apart
// from the table's own writes.
func (t *Table[T]) WroteSince(since time.Time) bool {
	return t.lastWrite.Load() >= since.UnixNano()
}

// AddObserver registers an observer for subsequent mutations. The observer
// is immediately primed with the current row set via OnReplace.
func (t *Table[T]) AddObserver(o TableObserver[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
	o.OnReplace(t.rows)
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Get returns a clone of the row with the given ID, or the zero value if not
// found.
func (t *Table[T]) Get(id ksid.ID) T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i, ok := t.findLocked(id); ok {
		return t.rows[i].Clone()
	}
	var zero T
	return zero
}

// All returns an iterator over clones of all rows in ID order.
func (t *Table[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// Snapshot returns a copy of all rows in ID order.
func (t *Table[T]) Snapshot() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Table[T]) snapshotLocked() []T {
	rows := make([]T, len(t.rows))
	for i, row := range t.rows {
		rows[i] = row.Clone()
	}
	return rows
}

// Append adds a new row to the table and persists it.
func (t *Table[T]) Append(row T) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("invalid row: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.findLocked(row.GetID())
	if ok {
		return fmt.Errorf("row %s already exists in %s", row.GetID(), t.path)
	}

	// Fast path: IDs are time-sortable so new rows normally land at the end
	// and a plain file append suffices. Out-of-order IDs force a rewrite.
	if i == len(t.rows) {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}

		f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open table file for append: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()

		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		if _, err := f.WriteString("\n"); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
		t.lastWrite.Store(time.Now().UnixNano())
		t.rows = append(t.rows, row.Clone())
	} else {
		rows := slices.Insert(slices.Clone(t.rows), i, row.Clone())
		if err := t.persistLocked(rows); err != nil {
			return err
		}
		t.rows = rows
	}

	for _, o := range t.observers {
		o.OnAppend(row)
	}
	t.notifyLocked()
	return nil
}

// Update replaces the row with the same ID and persists the table.
// Returns an error if the row does not exist.
func (t *Table[T]) Update(row T) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("invalid row: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.findLocked(row.GetID())
	if !ok {
		return fmt.Errorf("row %s not found in %s", row.GetID(), t.path)
	}
	prev := t.rows[i]
	rows := slices.Clone(t.rows)
	rows[i] = row.Clone()
	if err := t.persistLocked(rows); err != nil {
		return err
	}
	t.rows = rows
	for _, o := range t.observers {
		o.OnUpdate(prev, row)
	}
	t.notifyLocked()
	return nil
}

// Modify applies fn to a clone of the row with the given ID while holding
// the write lock, then persists the result. fn returning an error aborts
// the modification with no change.
func (t *Table[T]) Modify(id ksid.ID, fn func(row T) error) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.findLocked(id)
	if !ok {
		return zero, fmt.Errorf("row %s not found in %s", id, t.path)
	}
	prev := t.rows[i]
	curr := prev.Clone()
	if err := fn(curr); err != nil {
		return zero, err
	}
	if curr.GetID() != id {
		return zero, fmt.Errorf("modify must not change the row ID")
	}
	if err := curr.Validate(); err != nil {
		return zero, fmt.Errorf("invalid row: %w", err)
	}
	rows := slices.Clone(t.rows)
	rows[i] = curr
	if err := t.persistLocked(rows); err != nil {
		return zero, err
	}
	t.rows = rows
	for _, o := range t.observers {
		o.OnUpdate(prev, curr)
	}
	t.notifyLocked()
	return curr.Clone(), nil
}

// Delete removes the row with the given ID and persists the table.
// Returns an error if the row does not exist.
func (t *Table[T]) Delete(id ksid.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.findLocked(id)
	if !ok {
		return fmt.Errorf("row %s not found in %s", id, t.path)
	}
	prev := t.rows[i]
	rows := slices.Delete(slices.Clone(t.rows), i, i+1)
	if err := t.persistLocked(rows); err != nil {
		return err
	}
	t.rows = rows
	for _, o := range t.observers {
		o.OnDelete(prev)
	}
	t.notifyLocked()
	return nil
}

// Replace replaces all rows with the provided slice and persists it.
func (t *Table[T]) Replace(rows []T) error {
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("invalid row %s: %w", row.GetID(), err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cloned := make([]T, len(rows))
	for i, row := range rows {
		cloned[i] = row.Clone()
	}
	slices.SortStableFunc(cloned, func(a, b T) int {
		return compareID(a.GetID(), b.GetID())
	})
	if err := t.persistLocked(cloned); err != nil {
		return err
	}
	t.rows = cloned
	for _, o := range t.observers {
		o.OnReplace(cloned)
	}
	t.notifyLocked()
	return nil
}

// installLocked swaps in a row set that has already been persisted and
// notifies observers and subscribers. The write lock must be held.
func (t *Table[T]) installLocked(rows []T) {
	t.rows = rows
	for _, o := range t.observers {
		o.OnReplace(rows)
	}
	t.notifyLocked()
}

// findLocked returns the insertion index of the row with the given ID.
// Rows are kept sorted by ID, so this is a binary search.
func (t *Table[T]) findLocked(id ksid.ID) (int, bool) {
	return slices.BinarySearchFunc(t.rows, id, func(row T, id ksid.ID) int {
		return compareID(row.GetID(), id)
	})
}

func compareID(a, b ksid.ID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// persistLocked rewrites the whole backing file with the given rows.
func (t *Table[T]) persistLocked(rows []T) error {
	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	writer := bufio.NewWriter(f)
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	t.lastWrite.Store(time.Now().UnixNano())
	return nil
}
