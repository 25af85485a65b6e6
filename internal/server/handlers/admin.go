package handlers

import (
	"context"

	"github.com/notelite/notelite/internal/server/dto"
	"github.com/notelite/notelite/internal/storage"
)

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	admin *storage.AdminService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin *storage.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Stats returns per-user document counts.
func (h *AdminHandler) Stats(ctx context.Context, req *dto.StatsRequest) (*dto.StatsResponse, error) {
	stats, err := h.admin.Stats(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]dto.UserStats, len(stats))
	for i, s := range stats {
		users[i] = dto.UserStats{
			UserID:     s.UserID,
			Pages:      s.Pages,
			Blocks:     s.Blocks,
			Archived:   s.Archived,
			Workspaces: s.Workspaces,
			Tasks:      s.Tasks,
			TasksDone:  s.TasksDone,
		}
	}
	return &dto.StatsResponse{Users: users}, nil
}

// WipeUser deletes all of a user's data and reports the removed count.
func (h *AdminHandler) WipeUser(ctx context.Context, req *dto.WipeUserRequest) (*dto.WipeUserResponse, error) {
	res, err := h.admin.WipeUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	return &dto.WipeUserResponse{UserID: res.UserID, Deleted: res.Deleted}, nil
}
