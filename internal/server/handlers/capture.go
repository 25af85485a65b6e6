package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/notelite/notelite/internal/models"
	"github.com/notelite/notelite/internal/server/dto"
	"github.com/notelite/notelite/internal/storage"
)

// defaultCapturePage receives captures that name no page.
const defaultCapturePage = "Inbox"

// CaptureHandler handles the quick-capture endpoint used by external
// clients (shell scripts, phone shortcuts) to append a note without a full
// session.
type CaptureHandler struct {
	blocks *storage.BlockService
	pages  *storage.PageService
}

// NewCaptureHandler creates a new capture handler.
func NewCaptureHandler(blocks *storage.BlockService, pages *storage.PageService) *CaptureHandler {
	return &CaptureHandler{blocks: blocks, pages: pages}
}

// Capture appends the content to the named page, creating the page when it
// does not exist. A "[] " or "[x] " prefix turns the capture into an
// unchecked or checked todo block.
func (h *CaptureHandler) Capture(ctx context.Context, req *dto.CaptureRequest) (*dto.CaptureResponse, error) {
	title := req.PageTitle
	if title == "" {
		title = defaultCapturePage
	}
	page, err := h.pages.FindPageByTitle(ctx, req.UserID, title)
	if err != nil {
		var apiErr *models.APIError
		if !errors.As(err, &apiErr) || apiErr.Code() != models.ErrorCodeNotFound {
			return nil, err
		}
		if page, err = h.pages.CreatePage(ctx, req.UserID, title, 0, nil); err != nil {
			return nil, err
		}
	}

	fields := parseCapture(req.Content)
	block, err := h.blocks.CreateBlock(ctx, req.UserID, page.ID, fields)
	if err != nil {
		return nil, err
	}
	return &dto.CaptureResponse{
		BlockID: block.ID.String(),
		PageID:  page.ID.String(),
	}, nil
}

// parseCapture maps capture shorthand to block fields.
func parseCapture(content string) storage.BlockFields {
	switch {
	case strings.HasPrefix(content, "[] "):
		return storage.BlockFields{
			Type:    models.BlockTypeTodo,
			Content: strings.TrimPrefix(content, "[] "),
			Task:    &models.TaskMeta{Status: models.TaskStatusNext},
		}
	case strings.HasPrefix(content, "[x] "):
		return storage.BlockFields{
			Type:      models.BlockTypeTodo,
			Content:   strings.TrimPrefix(content, "[x] "),
			IsChecked: true,
			Task:      &models.TaskMeta{Status: models.TaskStatusDone},
		}
	}
	return storage.BlockFields{Type: models.BlockTypeParagraph, Content: content}
}
