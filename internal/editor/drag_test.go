package editor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/models"
	"github.com/notelite/notelite/internal/storage"
)

// fakeMover records the single move it receives.
type fakeMover struct {
	mu sync.Mutex

	movedWithin  bool
	withinTarget ksid.ID
	withinPos    storage.Position

	movedAcross  bool
	acrossPageID ksid.ID
	acrossKids   []ksid.ID
}

func (f *fakeMover) MoveBlock(ctx context.Context, userID string, pageID, blockID, targetID ksid.ID, pos storage.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movedWithin = true
	f.withinTarget = targetID
	f.withinPos = pos
	return nil
}

func (f *fakeMover) MoveBlockToPage(ctx context.Context, userID string, blockID, dstPageID ksid.ID, childIDs ...ksid.ID) ([]*models.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movedAcross = true
	f.acrossPageID = dstPageID
	f.acrossKids = childIDs
	return []*models.Block{{ID: ksid.NewID(), PageID: dstPageID}}, nil
}

func TestDragController_SamePageDrop(t *testing.T) {
	mover := &fakeMover{}
	d := NewDragController(mover, time.Millisecond)
	page := ksid.NewID()
	block := ksid.NewID()
	target := ksid.NewID()

	d.Start("alice", block, page)
	if !d.Dragging() {
		t.Fatal("not dragging after Start")
	}
	// Pointer in the target's top half drops above it.
	if !d.Hover(target, page, 95, 100) {
		t.Fatal("hover rejected")
	}
	ind := d.Indicator()
	if ind == nil || ind.Position != storage.PositionAbove || ind.TargetID != target {
		t.Fatalf("indicator = %+v, want above %s", ind, target)
	}

	moved, err := d.Drop(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if moved != nil {
		t.Errorf("same-page drop returned blocks: %v", moved)
	}
	if !mover.movedWithin || mover.withinTarget != target || mover.withinPos != storage.PositionAbove {
		t.Errorf("mover call = %+v", mover)
	}
	if d.Dragging() {
		t.Error("still dragging after drop")
	}
}

func TestDragController_CrossPageDrop(t *testing.T) {
	mover := &fakeMover{}
	d := NewDragController(mover, time.Millisecond)
	srcPage := ksid.NewID()
	dstPage := ksid.NewID()
	block := ksid.NewID()
	child := ksid.NewID()
	target := ksid.NewID()

	d.Start("alice", block, srcPage, child)
	// Pointer below the midpoint drops below the target, but the position is
	// irrelevant across pages: the move appends.
	if !d.Hover(target, dstPage, 110, 100) {
		t.Fatal("hover rejected")
	}
	moved, err := d.Drop(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(moved) != 1 {
		t.Fatalf("moved = %v", moved)
	}
	if !mover.movedAcross || mover.acrossPageID != dstPage {
		t.Errorf("mover call = %+v", mover)
	}
	if len(mover.acrossKids) != 1 || mover.acrossKids[0] != child {
		t.Errorf("children = %v, want [%s]", mover.acrossKids, child)
	}
	if mover.movedWithin {
		t.Error("cross-page drop also reordered")
	}
}

func TestDragController_HoverThrottle(t *testing.T) {
	mover := &fakeMover{}
	d := NewDragController(mover, time.Hour)
	page := ksid.NewID()
	block := ksid.NewID()
	first := ksid.NewID()
	second := ksid.NewID()

	d.Start("alice", block, page)
	if !d.Hover(first, page, 0, 100) {
		t.Fatal("first hover rejected")
	}
	// Burst updates inside the throttle window are dropped, not queued; the
	// indicator keeps its last accepted position.
	if d.Hover(second, page, 0, 100) {
		t.Error("throttled hover accepted")
	}
	if ind := d.Indicator(); ind == nil || ind.TargetID != first {
		t.Errorf("indicator = %+v, want target %s", ind, first)
	}
}

func TestDragController_HoverSelfAndCancel(t *testing.T) {
	mover := &fakeMover{}
	d := NewDragController(mover, time.Millisecond)
	page := ksid.NewID()
	block := ksid.NewID()

	d.Start("alice", block, page)
	if d.Hover(block, page, 0, 100) {
		t.Error("hover over the dragged block itself accepted")
	}

	d.Cancel()
	if d.Dragging() {
		t.Error("still dragging after cancel")
	}
	moved, err := d.Drop(context.Background())
	if err != nil || moved != nil {
		t.Errorf("drop after cancel = %v, %v", moved, err)
	}
	if mover.movedWithin || mover.movedAcross {
		t.Error("cancelled drag still moved")
	}
}
