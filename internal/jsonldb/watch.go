// Provides live snapshot subscriptions on tables.

package jsonldb

// Subscription delivers full table snapshots after every committed mutation.
//
// The channel always carries the complete, ID-ordered row set, never a diff.
// Delivery is coalescing: if the consumer lags, intermediate snapshots are
// dropped and only the latest is kept. Writers never block on a slow
// consumer.
type Subscription[T Row[T]] struct {
	table *Table[T]
	ch    chan []T
}

// C returns the snapshot channel. It is closed by Cancel.
func (s *Subscription[T]) C() <-chan []T {
	return s.ch
}

// Cancel detaches the subscription and closes its channel.
// Safe to call once; the subscription must not be reused after.
func (s *Subscription[T]) Cancel() {
	s.table.mu.Lock()
	defer s.table.mu.Unlock()
	if _, ok := s.table.subs[s]; !ok {
		return
	}
	delete(s.table.subs, s)
	close(s.ch)
}

// Subscribe registers a snapshot subscription. The current snapshot is
// queued immediately so consumers start from a known state.
func (t *Table[T]) Subscribe() *Subscription[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &Subscription[T]{
		table: t,
		ch:    make(chan []T, 1),
	}
	t.subs[s] = struct{}{}
	s.ch <- t.snapshotLocked()
	return s
}

// notifyLocked pushes the current snapshot to every subscriber, replacing
// any undelivered one. Callers must hold the write lock.
func (t *Table[T]) notifyLocked() {
	if len(t.subs) == 0 {
		return
	}
	snap := t.snapshotLocked()
	for s := range t.subs {
		select {
		case s.ch <- snap:
		default:
			// Drop the stale snapshot, keep the latest.
			select {
			case <-s.ch:
			default:
			}
			s.ch <- snap
		}
	}
}
