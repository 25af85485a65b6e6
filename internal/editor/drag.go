package editor

import (
	"context"
	"sync"
	"time"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/models"
	"github.com/notelite/notelite/internal/storage"
	"golang.org/x/time/rate"
)

// Mover is the subset of the block service a drag needs.
type Mover interface {
	MoveBlock(ctx context.Context, userID string, pageID, blockID, targetID ksid.ID, pos storage.Position) error
	MoveBlockToPage(ctx context.Context, userID string, blockID, dstPageID ksid.ID, childIDs ...ksid.ID) ([]*models.Block, error)
}

// DropIndicator is the single shared marker showing where the dragged block
// would land. There is exactly one per controller, moved from target to
// target as the pointer travels.
type DropIndicator struct {
	TargetID ksid.ID
	PageID   ksid.ID
	Position storage.Position
}

// DragController coordinates one drag gesture: it tracks the payload,
// throttles hover updates and resolves the drop into a reorder (same page)
// or a cross-page move.
type DragController struct {
	mover   Mover
	limiter *rate.Limiter

	mu        sync.Mutex
	dragging  bool
	userID    string
	blockID   ksid.ID
	srcPageID ksid.ID
	children  []ksid.ID
	indicator *DropIndicator
}

// NewDragController creates a controller whose hover updates are rate
// limited to one per throttle interval. Updates beyond the limit are
// dropped, not queued; the next one through repositions the indicator.
func NewDragController(mover Mover, throttle time.Duration) *DragController {
	return &DragController{
		mover:   mover,
		limiter: rate.NewLimiter(rate.Every(throttle), 1),
	}
}

// Start begins dragging a block, optionally with dependent children that
// follow it on a cross-page drop. A drag already in progress is replaced.
func (d *DragController) Start(userID string, blockID, srcPageID ksid.ID, children ...ksid.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dragging = true
	d.userID = userID
	d.blockID = blockID
	d.srcPageID = srcPageID
	d.children = children
	d.indicator = nil
}

// Dragging reports whether a gesture is in progress.
func (d *DragController) Dragging() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dragging
}

// Hover positions the drop indicator relative to the hovered block: above
// when the pointer is in the block's top half, below otherwise. Returns
// false when the update was throttled away or no drag is in progress; the
// indicator then keeps its previous position.
func (d *DragController) Hover(targetID, targetPageID ksid.ID, pointerY, targetMidY float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dragging || targetID == d.blockID {
		return false
	}
	if !d.limiter.Allow() {
		return false
	}
	pos := storage.PositionBelow
	if pointerY < targetMidY {
		pos = storage.PositionAbove
	}
	d.indicator = &DropIndicator{TargetID: targetID, PageID: targetPageID, Position: pos}
	return true
}

// Indicator returns the current drop indicator, or nil when the pointer has
// not hovered a valid target yet.
func (d *DragController) Indicator() *DropIndicator {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indicator == nil {
		return nil
	}
	ind := *d.indicator
	return &ind
}

// Drop commits the drag at the indicator's position. A drop on the same
// page reorders; a drop on another page moves the block and its children
// there and returns the relocated blocks with their new identifiers. A drop
// with no indicator cancels.
func (d *DragController) Drop(ctx context.Context) ([]*models.Block, error) {
	d.mu.Lock()
	if !d.dragging {
		d.mu.Unlock()
		return nil, nil
	}
	ind := d.indicator
	userID, blockID, srcPageID := d.userID, d.blockID, d.srcPageID
	children := d.children
	d.reset()
	d.mu.Unlock()

	if ind == nil {
		return nil, nil
	}
	if ind.PageID == srcPageID {
		return nil, d.mover.MoveBlock(ctx, userID, srcPageID, blockID, ind.TargetID, ind.Position)
	}
	return d.mover.MoveBlockToPage(ctx, userID, blockID, ind.PageID, children...)
}

// Cancel abandons the drag without moving anything.
func (d *DragController) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

// reset clears the gesture state. Caller holds mu.
func (d *DragController) reset() {
	d.dragging = false
	d.userID = ""
	d.blockID = 0
	d.srcPageID = 0
	d.children = nil
	d.indicator = nil
}
