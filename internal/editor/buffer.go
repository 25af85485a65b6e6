// Package editor implements client-side editing coordination: the debounced
// write buffer that batches keystrokes into saves, and the drag controller
// that turns pointer movement into reorder and move operations.
package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/models"
)

// SaveFunc persists one block's content. Typically backed by
// BlockService.UpdateBlock.
type SaveFunc func(ctx context.Context, blockID ksid.ID, content string) error

// EditBuffer accumulates keystrokes per block and saves each block at most
// once per debounce interval. A block is dirty from the first unsaved
// keystroke until a save confirms it; while dirty, its local content is
// authoritative and incoming remote snapshots do not overwrite it.
//
// A failed save keeps the block dirty: the write is retried on the next
// keystroke's debounce cycle or on the next Flush, never dropped.
type EditBuffer struct {
	save     SaveFunc
	interval time.Duration

	mu      sync.Mutex
	entries map[ksid.ID]*bufferEntry
	closed  bool
}

type bufferEntry struct {
	content   string
	dirty     bool
	gen       uint64 // bumped on every keystroke; stale saves check it
	debounced func(func())
}

// NewEditBuffer creates a buffer that saves through fn after interval of
// keystroke silence.
func NewEditBuffer(fn SaveFunc, interval time.Duration) *EditBuffer {
	return &EditBuffer{
		save:     fn,
		interval: interval,
		entries:  map[ksid.ID]*bufferEntry{},
	}
}

// SetContent records a keystroke. The save fires after the debounce
// interval elapses with no further edits to this block.
func (b *EditBuffer) SetContent(ctx context.Context, blockID ksid.ID, content string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	e, ok := b.entries[blockID]
	if !ok {
		e = &bufferEntry{debounced: debounce.New(b.interval)}
		b.entries[blockID] = e
	}
	e.content = content
	e.dirty = true
	e.gen++
	gen := e.gen
	fire := e.debounced
	b.mu.Unlock()

	fire(func() { b.saveBlock(ctx, blockID, gen) })
}

// saveBlock persists the block's pending content unless a newer keystroke
// superseded this timer fire.
func (b *EditBuffer) saveBlock(ctx context.Context, blockID ksid.ID, gen uint64) {
	b.mu.Lock()
	e, ok := b.entries[blockID]
	if !ok || !e.dirty || e.gen != gen {
		b.mu.Unlock()
		return
	}
	content := e.content
	b.mu.Unlock()

	if err := b.save(ctx, blockID, content); err != nil {
		// Stays dirty; retried on the next keystroke or Flush.
		slog.WarnContext(ctx, "Deferred block save failed", "block", blockID, "err", err)
		return
	}

	b.mu.Lock()
	if e.gen == gen {
		e.dirty = false
	}
	b.mu.Unlock()
}

// IsDirty reports whether the block has unsaved edits.
func (b *EditBuffer) IsDirty(blockID ksid.ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[blockID]
	return ok && e.dirty
}

// Merge overlays local unsaved edits onto a remote snapshot: blocks with
// pending keystrokes keep their local content, everything else takes the
// remote value. The input blocks are not modified.
func (b *EditBuffer) Merge(blocks []*models.Block) []*models.Block {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.Block, len(blocks))
	for i, block := range blocks {
		if e, ok := b.entries[block.ID]; ok && e.dirty {
			c := block.Clone()
			c.Content = e.content
			out[i] = c
		} else {
			out[i] = block
		}
	}
	return out
}

// Flush saves every dirty block immediately, bypassing the debounce timers.
// Returns the first save error; remaining blocks are still attempted and
// failed blocks stay dirty.
func (b *EditBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	type pending struct {
		id      ksid.ID
		content string
		gen     uint64
	}
	var work []pending
	for id, e := range b.entries {
		if e.dirty {
			work = append(work, pending{id, e.content, e.gen})
		}
	}
	b.mu.Unlock()

	var firstErr error
	for _, w := range work {
		if err := b.save(ctx, w.id, w.content); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		b.mu.Lock()
		if e, ok := b.entries[w.id]; ok && e.gen == w.gen {
			e.dirty = false
		}
		b.mu.Unlock()
	}
	return firstErr
}

// Close flushes outstanding edits and rejects further keystrokes.
func (b *EditBuffer) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return b.Flush(ctx)
}
