package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/jsonldb"
	"github.com/notelite/notelite/internal/models"
)

// BlockService handles block business logic: creation, partial updates,
// ordering, archival and cross-page moves.
type BlockService struct {
	store  *Store
	config *Config
}

// NewBlockService creates a new block service.
func NewBlockService(store *Store, config *Config) *BlockService {
	return &BlockService{store: store, config: config}
}

// BlockFields are the caller-supplied fields for a new block.
type BlockFields struct {
	Type        models.BlockType
	Content     string
	IndentLevel int
	IsChecked   bool
	WorkspaceID ksid.ID
	Task        *models.TaskMeta
}

// CreateBlock creates a block at the end of the page (order = current
// sibling count) and returns it.
func (s *BlockService) CreateBlock(ctx context.Context, userID string, pageID ksid.ID, fields BlockFields) (*models.Block, error) {
	if pageID.IsZero() {
		return nil, models.MissingField("pageId")
	}
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	if page := u.pages.Get(pageID); page == nil {
		return nil, models.NotFound("page")
	}

	if q := s.config.Quotas.MaxBlocksPerPage; q > 0 {
		if count := u.blocksByPage.Count(pageID); count >= q {
			return nil, models.Conflict(fmt.Sprintf("block quota exceeded (%d/%d)", count, q))
		}
	}

	if fields.Type == "" {
		fields.Type = models.BlockTypeParagraph
	}
	now := time.Now()
	block := &models.Block{
		ID:          ksid.NewID(),
		PageID:      pageID,
		WorkspaceID: fields.WorkspaceID,
		Type:        fields.Type,
		Content:     fields.Content,
		IndentLevel: models.ClampIndent(fields.IndentLevel),
		IsChecked:   fields.IsChecked,
		Order:       s.nextOrder(u, pageID),
		Task:        fields.Task,
		Created:     now,
		Modified:    now,
	}
	if err := u.blocks.Append(block); err != nil {
		return nil, fmt.Errorf("failed to create block: %w", err)
	}
	return block, nil
}

// nextOrder returns the append position for a new block: one past the
// current sibling count. No gap-filling or fractional indexing; inserting
// between siblings is done by renumbering (see MoveBlock).
func (s *BlockService) nextOrder(u *UserStore, pageID ksid.ID) int64 {
	return int64(u.blocksByPage.Count(pageID))
}

// GetBlock returns a block by ID.
func (s *BlockService) GetBlock(ctx context.Context, userID string, blockID ksid.ID) (*models.Block, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	block := u.blocks.Get(blockID)
	if block == nil {
		return nil, models.NotFound("block")
	}
	return block, nil
}

// GetBlocks returns the page's blocks in display order: ascending by order,
// ties broken by ID.
func (s *BlockService) GetBlocks(ctx context.Context, userID string, pageID ksid.ID) ([]*models.Block, error) {
	if pageID.IsZero() {
		return nil, models.MissingField("pageId")
	}
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	blocks := u.blocksByPage.Get(pageID)
	models.SortBlocks(blocks)
	return blocks, nil
}

// SubscribeToBlocks returns a snapshot subscription limited to one page.
// Each delivery is the page's full, display-ordered block set.
func (s *BlockService) SubscribeToBlocks(ctx context.Context, userID string, pageID ksid.ID) (*PageSubscription, error) {
	if pageID.IsZero() {
		return nil, models.MissingField("pageId")
	}
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	return newPageSubscription(u.blocks.Subscribe(), pageID), nil
}

// UpdateBlock applies a partial update. Fields absent from the patch are
// left untouched; fields present are written even when zero-valued.
func (s *BlockService) UpdateBlock(ctx context.Context, userID string, blockID ksid.ID, patch *models.BlockPatch) (*models.Block, error) {
	if err := patch.Validate(); err != nil {
		return nil, models.BadRequest(err.Error())
	}
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	block, err := u.blocks.Modify(blockID, func(b *models.Block) error {
		patch.Apply(b)
		b.Modified = time.Now()
		return nil
	})
	if err != nil {
		if u.blocks.Get(blockID) == nil {
			return nil, models.NotFound("block")
		}
		return nil, fmt.Errorf("failed to update block: %w", err)
	}
	return block, nil
}

// DeleteBlock hard-deletes a block with no recovery path. Most callers want
// ArchiveBlock instead.
func (s *BlockService) DeleteBlock(ctx context.Context, userID string, blockID ksid.ID) error {
	u, err := s.store.User(userID)
	if err != nil {
		return err
	}
	if u.blocks.Get(blockID) == nil {
		return models.NotFound("block")
	}
	if err := u.blocks.Delete(blockID); err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	return nil
}

// ArchiveBlock soft-deletes a block: it is copied to the archive table
// preserving its identifier, content and creation timestamp, then removed
// from the live table. Archived blocks can be restored (recycle bin
// semantics).
func (s *BlockService) ArchiveBlock(ctx context.Context, userID string, blockID ksid.ID) error {
	u, err := s.store.User(userID)
	if err != nil {
		return err
	}
	block := u.blocks.Get(blockID)
	if block == nil {
		return models.NotFound("block")
	}
	copied := u.archive.NewBatch().Put(block)
	removed := u.blocks.NewBatch().Delete(blockID)
	if err := jsonldb.CommitPair(copied, removed); err != nil {
		return fmt.Errorf("failed to archive block: %w", err)
	}
	return nil
}

// ListArchived returns all archived blocks, most recently created first.
func (s *BlockService) ListArchived(ctx context.Context, userID string) ([]*models.Block, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	blocks := u.archive.Snapshot()
	// Archive is browsed newest-first.
	for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	}
	return blocks, nil
}

// RestoreBlock moves an archived block back to a live page. The block keeps
// its original identifier, content, type, indent and checked flag; its order
// is the destination page's append position. When pageID is zero the
// block's original page is used if it still exists, otherwise the restore
// fails.
func (s *BlockService) RestoreBlock(ctx context.Context, userID string, blockID, pageID ksid.ID) (*models.Block, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	block := u.archive.Get(blockID)
	if block == nil {
		return nil, models.NotFound("archived block")
	}
	if !pageID.IsZero() {
		block.PageID = pageID
	}
	if u.pages.Get(block.PageID) == nil {
		return nil, models.NotFound("destination page")
	}
	block.Order = s.nextOrder(u, block.PageID)
	block.Modified = time.Now()

	revived := u.blocks.NewBatch().Put(block)
	removed := u.archive.NewBatch().Delete(blockID)
	if err := jsonldb.CommitPair(revived, removed); err != nil {
		return nil, fmt.Errorf("failed to restore block: %w", err)
	}
	return block, nil
}

// OrderAssignment pairs a block with its new order value.
type OrderAssignment struct {
	ID    ksid.ID `json:"id"`
	Order int64   `json:"order"`
}

// ReorderBlocks applies a list of (id, order) pairs as one atomic batch.
// All referenced blocks must belong to the given page.
func (s *BlockService) ReorderBlocks(ctx context.Context, userID string, pageID ksid.ID, assignments []OrderAssignment) error {
	if pageID.IsZero() {
		return models.MissingField("pageId")
	}
	if len(assignments) == 0 {
		return nil
	}
	u, err := s.store.User(userID)
	if err != nil {
		return err
	}

	now := time.Now()
	batch := u.blocks.NewBatch()
	for _, a := range assignments {
		block := u.blocks.Get(a.ID)
		if block == nil {
			return models.NotFound("block")
		}
		if block.PageID != pageID {
			return models.BadRequest(fmt.Sprintf("block %s does not belong to page %s", a.ID, pageID))
		}
		block.Order = a.Order
		block.Modified = now
		batch.Update(block)
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("failed to reorder blocks: %w", err)
	}
	return nil
}

// Position indicates which side of the target a dragged block lands on.
type Position string

const (
	// PositionAbove drops the block immediately before the target.
	PositionAbove Position = "above"
	// PositionBelow drops the block immediately after the target.
	PositionBelow Position = "below"
)

// MoveBlock reorders a block within its page relative to a target block.
// Only the siblings whose order actually changes are rewritten, in one
// atomic batch. This is O(N) in the page size.
func (s *BlockService) MoveBlock(ctx context.Context, userID string, pageID, blockID, targetID ksid.ID, pos Position) error {
	if pos != PositionAbove && pos != PositionBelow {
		return models.BadRequest(fmt.Sprintf("invalid position %q", pos))
	}
	if blockID == targetID {
		return nil
	}
	blocks, err := s.GetBlocks(ctx, userID, pageID)
	if err != nil {
		return err
	}

	moved, reordered := reorderAround(blocks, blockID, targetID, pos)
	if !moved {
		return models.NotFound("block")
	}

	// Renumber 0..n-1 and persist only the entries whose order changed.
	var assignments []OrderAssignment
	for i, b := range reordered {
		if b.Order != int64(i) {
			assignments = append(assignments, OrderAssignment{ID: b.ID, Order: int64(i)})
		}
	}
	return s.ReorderBlocks(ctx, userID, pageID, assignments)
}

// reorderAround returns blocks with the given block repositioned above or
// below the target. Returns false when either block is missing.
func reorderAround(blocks []*models.Block, blockID, targetID ksid.ID, pos Position) (bool, []*models.Block) {
	var block *models.Block
	rest := make([]*models.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.ID == blockID {
			block = b
			continue
		}
		rest = append(rest, b)
	}
	if block == nil {
		return false, nil
	}

	out := make([]*models.Block, 0, len(blocks))
	found := false
	for _, b := range rest {
		if b.ID == targetID {
			found = true
			if pos == PositionAbove {
				out = append(out, block, b)
			} else {
				out = append(out, b, block)
			}
			continue
		}
		out = append(out, b)
	}
	if !found {
		return false, nil
	}
	return true, out
}

// MoveBlockToPage relocates a block, and optionally a set of dependent
// child blocks, to another page. The source documents are deleted and new
// documents are created in the destination with fresh identifiers and
// append-position orders, all in one atomic batch: observers never see the
// blocks in both places or neither. Returns the moved blocks in order, the
// primary block first.
//
// A missing source block fails the whole move with a not-found error;
// callers must treat this as non-retryable (the block is already gone).
func (s *BlockService) MoveBlockToPage(ctx context.Context, userID string, blockID, dstPageID ksid.ID, childIDs ...ksid.ID) ([]*models.Block, error) {
	if dstPageID.IsZero() {
		return nil, models.MissingField("destinationPageId")
	}
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	if u.pages.Get(dstPageID) == nil {
		return nil, models.NotFound("destination page")
	}

	ids := append([]ksid.ID{blockID}, childIDs...)
	order := s.nextOrder(u, dstPageID)
	now := time.Now()

	batch := u.blocks.NewBatch()
	moved := make([]*models.Block, 0, len(ids))
	for _, id := range ids {
		src := u.blocks.Get(id)
		if src == nil {
			return nil, models.NotFound("block")
		}
		if src.PageID == dstPageID {
			return nil, models.BadRequest("block is already on the destination page")
		}
		dst := src.Clone()
		dst.ID = ksid.NewID() // identity is not preserved across a move
		dst.PageID = dstPageID
		dst.Order = order
		dst.Modified = now
		order++

		batch.Delete(src.ID)
		batch.Put(dst)
		moved = append(moved, dst)
	}
	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("failed to move blocks: %w", err)
	}
	return moved, nil
}

// PageSubscription filters a blocks-table subscription down to one page and
// delivers display-ordered snapshots.
type PageSubscription struct {
	sub    *jsonldb.Subscription[*models.Block]
	pageID ksid.ID
	ch     chan []*models.Block
}

func newPageSubscription(sub *jsonldb.Subscription[*models.Block], pageID ksid.ID) *PageSubscription {
	p := &PageSubscription{
		sub:    sub,
		pageID: pageID,
		ch:     make(chan []*models.Block, 1),
	}
	go p.run()
	return p
}

func (p *PageSubscription) run() {
	defer close(p.ch)
	for snap := range p.sub.C() {
		page := make([]*models.Block, 0, len(snap))
		for _, b := range snap {
			if b.PageID == p.pageID {
				page = append(page, b)
			}
		}
		models.SortBlocks(page)
		// Same coalescing contract as the underlying subscription: the
		// latest snapshot wins.
		select {
		case p.ch <- page:
		default:
			select {
			case <-p.ch:
			default:
			}
			p.ch <- page
		}
	}
}

// C returns the snapshot channel. Closed by Cancel.
func (p *PageSubscription) C() <-chan []*models.Block {
	return p.ch
}

// Cancel detaches the subscription.
func (p *PageSubscription) Cancel() {
	p.sub.Cancel()
}
