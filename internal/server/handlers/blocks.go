package handlers

import (
	"context"
	"time"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/models"
	"github.com/notelite/notelite/internal/server/dto"
	"github.com/notelite/notelite/internal/storage"
)

// BlockHandler handles block CRUD, ordering and archive requests.
type BlockHandler struct {
	blocks *storage.BlockService
}

// NewBlockHandler creates a new block handler.
func NewBlockHandler(blocks *storage.BlockService) *BlockHandler {
	return &BlockHandler{blocks: blocks}
}

// ListBlocks returns a page's blocks in display order.
func (h *BlockHandler) ListBlocks(ctx context.Context, req *dto.ListBlocksRequest) (*dto.ListBlocksResponse, error) {
	blocks, err := h.blocks.GetBlocks(ctx, req.UserID, req.PageID)
	if err != nil {
		return nil, err
	}
	return &dto.ListBlocksResponse{Blocks: blocksToResponse(blocks)}, nil
}

// CreateBlock creates a block at the end of a page.
func (h *BlockHandler) CreateBlock(ctx context.Context, req *dto.CreateBlockRequest) (*dto.BlockResponse, error) {
	fields := storage.BlockFields{
		Type:        models.BlockType(req.Type),
		Content:     req.Content,
		IndentLevel: req.IndentLevel,
		IsChecked:   req.IsChecked,
	}
	if req.Task != nil {
		fields.Task = taskFromDTO(req.Task)
	}
	block, err := h.blocks.CreateBlock(ctx, req.UserID, req.PageID, fields)
	if err != nil {
		return nil, err
	}
	return blockToResponse(block), nil
}

// UpdateBlock applies a partial update to a block.
func (h *BlockHandler) UpdateBlock(ctx context.Context, req *dto.UpdateBlockRequest) (*dto.BlockResponse, error) {
	patch := &models.BlockPatch{
		Content:   req.Content,
		IsChecked: req.IsChecked,
		Order:     req.Order,
	}
	if req.Type != nil {
		t := models.BlockType(*req.Type)
		patch.Type = &t
	}
	if req.IndentLevel != nil {
		patch.IndentLevel = req.IndentLevel
	}
	if req.Task != nil {
		patch.Task = taskPatchFromDTO(req.Task)
	}
	block, err := h.blocks.UpdateBlock(ctx, req.UserID, req.BlockID, patch)
	if err != nil {
		return nil, err
	}
	return blockToResponse(block), nil
}

// DeleteBlock hard-deletes a block.
func (h *BlockHandler) DeleteBlock(ctx context.Context, req *dto.DeleteBlockRequest) (*dto.OkResponse, error) {
	if err := h.blocks.DeleteBlock(ctx, req.UserID, req.BlockID); err != nil {
		return nil, err
	}
	return &dto.OkResponse{Ok: true}, nil
}

// ArchiveBlock moves a block to the recycle bin.
func (h *BlockHandler) ArchiveBlock(ctx context.Context, req *dto.ArchiveBlockRequest) (*dto.OkResponse, error) {
	if err := h.blocks.ArchiveBlock(ctx, req.UserID, req.BlockID); err != nil {
		return nil, err
	}
	return &dto.OkResponse{Ok: true}, nil
}

// ListArchive returns the recycle bin, newest first.
func (h *BlockHandler) ListArchive(ctx context.Context, req *dto.ListArchiveRequest) (*dto.ListBlocksResponse, error) {
	blocks, err := h.blocks.ListArchived(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return &dto.ListBlocksResponse{Blocks: blocksToResponse(blocks)}, nil
}

// RestoreBlock restores an archived block to a live page.
func (h *BlockHandler) RestoreBlock(ctx context.Context, req *dto.RestoreBlockRequest) (*dto.BlockResponse, error) {
	var pageID ksid.ID
	if req.PageID != "" {
		pageID, _ = ksid.Parse(req.PageID)
	}
	block, err := h.blocks.RestoreBlock(ctx, req.UserID, req.BlockID, pageID)
	if err != nil {
		return nil, err
	}
	return blockToResponse(block), nil
}

// ReorderBlocks applies order assignments to a page in one atomic batch.
func (h *BlockHandler) ReorderBlocks(ctx context.Context, req *dto.ReorderBlocksRequest) (*dto.OkResponse, error) {
	assignments := make([]storage.OrderAssignment, len(req.Blocks))
	for i, a := range req.Blocks {
		id, _ := ksid.Parse(a.ID)
		assignments[i] = storage.OrderAssignment{ID: id, Order: a.Order}
	}
	if err := h.blocks.ReorderBlocks(ctx, req.UserID, req.PageID, assignments); err != nil {
		return nil, err
	}
	return &dto.OkResponse{Ok: true}, nil
}

// MoveBlock moves a block and its children to another page.
func (h *BlockHandler) MoveBlock(ctx context.Context, req *dto.MoveBlockRequest) (*dto.MoveBlockResponse, error) {
	blockID, _ := ksid.Parse(req.BlockID)
	pageID, _ := ksid.Parse(req.PageID)
	children := make([]ksid.ID, len(req.Children))
	for i, c := range req.Children {
		children[i], _ = ksid.Parse(c)
	}
	moved, err := h.blocks.MoveBlockToPage(ctx, req.UserID, blockID, pageID, children...)
	if err != nil {
		return nil, err
	}
	return &dto.MoveBlockResponse{Blocks: blocksToResponse(moved)}, nil
}

// taskFromDTO builds full task metadata from a create payload.
func taskFromDTO(t *dto.TaskMeta) *models.TaskMeta {
	meta := &models.TaskMeta{
		Status:   models.TaskStatus(t.Status),
		Value:    t.Value,
		Effort:   t.Effort,
		Assignee: t.Assignee,
		Company:  t.Company,
	}
	if meta.Status == "" {
		meta.Status = models.TaskStatusNext
	}
	if t.DueDate != "" {
		if due, err := time.Parse(time.RFC3339, t.DueDate); err == nil {
			meta.DueDate = due
		}
	}
	return meta
}

// taskPatchFromDTO builds a partial task update.
func taskPatchFromDTO(t *dto.TaskPatch) *models.TaskPatch {
	patch := &models.TaskPatch{
		Value:    t.Value,
		Effort:   t.Effort,
		Assignee: t.Assignee,
		Company:  t.Company,
	}
	if t.Status != nil {
		s := models.TaskStatus(*t.Status)
		patch.Status = &s
	}
	if t.DueDate != nil {
		if due, err := time.Parse(time.RFC3339, *t.DueDate); err == nil {
			patch.DueDate = &due
		}
	}
	return patch
}
