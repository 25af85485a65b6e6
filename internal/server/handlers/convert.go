package handlers

import (
	"time"

	"github.com/notelite/notelite/internal/models"
	"github.com/notelite/notelite/internal/server/dto"
)

// --- Time formatting ---

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// --- Entity to DTO conversions ---

func blockToResponse(b *models.Block) *dto.BlockResponse {
	return &dto.BlockResponse{
		ID:          b.ID.String(),
		PageID:      b.PageID.String(),
		Type:        string(b.Type),
		Content:     b.Content,
		IndentLevel: b.IndentLevel,
		IsChecked:   b.IsChecked,
		Order:       b.Order,
		Task:        taskToDTO(b.Task),
		Created:     formatTime(b.Created),
		Modified:    formatTime(b.Modified),
	}
}

func blocksToResponse(blocks []*models.Block) []*dto.BlockResponse {
	out := make([]*dto.BlockResponse, len(blocks))
	for i, b := range blocks {
		out[i] = blockToResponse(b)
	}
	return out
}

func taskToDTO(t *models.TaskMeta) *dto.TaskMeta {
	if t == nil {
		return nil
	}
	var due string
	if !t.DueDate.IsZero() {
		due = t.DueDate.Format(time.RFC3339)
	}
	return &dto.TaskMeta{
		Status:   string(t.Status),
		Value:    t.Value,
		Effort:   t.Effort,
		ROI:      t.ROI(),
		DueDate:  due,
		Assignee: t.Assignee,
		Company:  t.Company,
	}
}

func pageToResponse(p *models.Page) *dto.PageResponse {
	resp := &dto.PageResponse{
		ID:       p.ID.String(),
		Title:    p.Title,
		Order:    p.Order,
		IsFixed:  p.IsFixed,
		Tags:     p.Tags,
		Created:  formatTime(p.Created),
		Modified: formatTime(p.Modified),
	}
	if !p.WorkspaceID.IsZero() {
		resp.WorkspaceID = p.WorkspaceID.String()
	}
	return resp
}

func workspaceToResponse(w *models.Workspace) *dto.WorkspaceResponse {
	return &dto.WorkspaceResponse{
		ID:       w.ID.String(),
		Name:     w.Name,
		Mode:     string(w.Mode),
		Created:  formatTime(w.Created),
		Modified: formatTime(w.Modified),
	}
}
