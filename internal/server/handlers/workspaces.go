package handlers

import (
	"context"

	"github.com/notelite/notelite/internal/models"
	"github.com/notelite/notelite/internal/server/dto"
	"github.com/notelite/notelite/internal/storage"
)

// WorkspaceHandler handles workspace requests.
type WorkspaceHandler struct {
	workspaces *storage.WorkspaceService
}

// NewWorkspaceHandler creates a new workspace handler.
func NewWorkspaceHandler(workspaces *storage.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces}
}

// ListWorkspaces returns the user's workspaces.
func (h *WorkspaceHandler) ListWorkspaces(ctx context.Context, req *dto.ListWorkspacesRequest) (*dto.ListWorkspacesResponse, error) {
	workspaces, err := h.workspaces.ListWorkspaces(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.WorkspaceResponse, len(workspaces))
	for i, w := range workspaces {
		out[i] = workspaceToResponse(w)
	}
	return &dto.ListWorkspacesResponse{Workspaces: out}, nil
}

// CreateWorkspace creates a GTD workspace with its fixed pages.
func (h *WorkspaceHandler) CreateWorkspace(ctx context.Context, req *dto.CreateWorkspaceRequest) (*dto.WorkspaceResponse, error) {
	ws, err := h.workspaces.CreateWorkspace(ctx, req.UserID, req.Name, models.WorkspaceMode(req.Mode))
	if err != nil {
		return nil, err
	}
	return workspaceToResponse(ws), nil
}

// DeleteWorkspace removes a workspace.
func (h *WorkspaceHandler) DeleteWorkspace(ctx context.Context, req *dto.DeleteWorkspaceRequest) (*dto.OkResponse, error) {
	if err := h.workspaces.DeleteWorkspace(ctx, req.UserID, req.WorkspaceID); err != nil {
		return nil, err
	}
	return &dto.OkResponse{Ok: true}, nil
}
