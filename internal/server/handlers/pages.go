package handlers

import (
	"context"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/models"
	"github.com/notelite/notelite/internal/server/dto"
	"github.com/notelite/notelite/internal/storage"
)

// PageHandler handles page requests.
type PageHandler struct {
	pages *storage.PageService
}

// NewPageHandler creates a new page handler.
func NewPageHandler(pages *storage.PageService) *PageHandler {
	return &PageHandler{pages: pages}
}

// ListPages returns the user's pages in display order.
func (h *PageHandler) ListPages(ctx context.Context, req *dto.ListPagesRequest) (*dto.ListPagesResponse, error) {
	pages, err := h.pages.ListPages(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.PageResponse, len(pages))
	for i, p := range pages {
		out[i] = pageToResponse(p)
	}
	return &dto.ListPagesResponse{Pages: out}, nil
}

// CreatePage creates a page at the end of the list.
func (h *PageHandler) CreatePage(ctx context.Context, req *dto.CreatePageRequest) (*dto.PageResponse, error) {
	var wsID ksid.ID
	if req.WorkspaceID != "" {
		wsID, _ = ksid.Parse(req.WorkspaceID)
	}
	page, err := h.pages.CreatePage(ctx, req.UserID, req.Title, wsID, req.Tags)
	if err != nil {
		return nil, err
	}
	return pageToResponse(page), nil
}

// UpdatePage applies a partial update to a page.
func (h *PageHandler) UpdatePage(ctx context.Context, req *dto.UpdatePageRequest) (*dto.PageResponse, error) {
	patch := &models.PagePatch{
		Title: req.Title,
		Order: req.Order,
	}
	if req.Tags != nil {
		patch.Tags = &req.Tags
	}
	page, err := h.pages.UpdatePage(ctx, req.UserID, req.PageID, patch)
	if err != nil {
		return nil, err
	}
	return pageToResponse(page), nil
}

// DeletePage deletes a page and all its blocks.
func (h *PageHandler) DeletePage(ctx context.Context, req *dto.DeletePageRequest) (*dto.DeletePageResponse, error) {
	deleted, err := h.pages.DeletePage(ctx, req.UserID, req.PageID)
	if err != nil {
		return nil, err
	}
	return &dto.DeletePageResponse{Ok: true, BlocksDeleted: deleted}, nil
}
