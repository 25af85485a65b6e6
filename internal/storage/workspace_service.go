package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/models"
)

// WorkspaceService handles workspace business logic.
//
// Only GTD-mode workspaces can be created. The legacy notes mode is
// read-only: workspaces recorded with it still load and list, but new ones
// are rejected.
type WorkspaceService struct {
	store *Store
	pages *PageService
}

// NewWorkspaceService creates a new workspace service.
func NewWorkspaceService(store *Store, pages *PageService) *WorkspaceService {
	return &WorkspaceService{store: store, pages: pages}
}

// ListWorkspaces returns the user's workspaces ordered by creation.
func (s *WorkspaceService) ListWorkspaces(ctx context.Context, userID string) ([]*models.Workspace, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	return u.workspaces.Snapshot(), nil
}

// GetWorkspace returns a workspace by ID.
func (s *WorkspaceService) GetWorkspace(ctx context.Context, userID string, workspaceID ksid.ID) (*models.Workspace, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	ws := u.workspaces.Get(workspaceID)
	if ws == nil {
		return nil, models.NotFound("workspace")
	}
	return ws, nil
}

// CreateWorkspace creates a GTD workspace and seeds its fixed pages.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, userID, name string, mode models.WorkspaceMode) (*models.Workspace, error) {
	if name == "" {
		return nil, models.MissingField("name")
	}
	if mode == "" {
		mode = models.WorkspaceModeGTD
	}
	if mode != models.WorkspaceModeGTD {
		return nil, models.BadRequest(fmt.Sprintf("workspace mode %q cannot be created", mode))
	}
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	ws := &models.Workspace{
		ID:       ksid.NewID(),
		Name:     name,
		Mode:     mode,
		Created:  now,
		Modified: now,
	}
	if err := u.workspaces.Append(ws); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	if err := s.pages.SeedFixedPages(ctx, userID, ws.ID); err != nil {
		return nil, err
	}
	return ws, nil
}

// RenameWorkspace updates the workspace name.
func (s *WorkspaceService) RenameWorkspace(ctx context.Context, userID string, workspaceID ksid.ID, name string) (*models.Workspace, error) {
	if name == "" {
		return nil, models.MissingField("name")
	}
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	ws, err := u.workspaces.Modify(workspaceID, func(w *models.Workspace) error {
		w.Name = name
		w.Modified = time.Now()
		return nil
	})
	if err != nil {
		if u.workspaces.Get(workspaceID) == nil {
			return nil, models.NotFound("workspace")
		}
		return nil, fmt.Errorf("failed to rename workspace: %w", err)
	}
	return ws, nil
}

// DeleteWorkspace removes a workspace. Its pages survive with a dangling
// workspace reference; use PageService.DeletePage to remove them first.
func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, userID string, workspaceID ksid.ID) error {
	u, err := s.store.User(userID)
	if err != nil {
		return err
	}
	if u.workspaces.Get(workspaceID) == nil {
		return models.NotFound("workspace")
	}
	for p := range u.pages.All() {
		if p.WorkspaceID == workspaceID && p.IsFixed {
			return models.Conflict("workspace still owns fixed pages")
		}
	}
	if err := u.workspaces.Delete(workspaceID); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	// Detach surviving pages so they do not point at a dead workspace.
	var orphans []ksid.ID
	for p := range u.pages.All() {
		if p.WorkspaceID == workspaceID {
			orphans = append(orphans, p.ID)
		}
	}
	for _, id := range orphans {
		if _, merr := u.pages.Modify(id, func(p *models.Page) error {
			p.WorkspaceID = 0
			return nil
		}); merr != nil {
			return fmt.Errorf("failed to detach page %s: %w", id, merr)
		}
	}
	return nil
}
