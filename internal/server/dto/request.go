package dto

import (
	"fmt"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/models"
)

// --- Workspaces ---

// ListWorkspacesRequest is a request to list a user's workspaces.
type ListWorkspacesRequest struct {
	UserID string `path:"userID"`
}

// Validate validates the list workspaces request fields.
func (r *ListWorkspacesRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	return nil
}

// CreateWorkspaceRequest is a request to create a workspace.
type CreateWorkspaceRequest struct {
	UserID string `path:"userID"`
	Name   string `json:"name"`
	Mode   string `json:"mode,omitempty"`
}

// Validate validates the create workspace request fields.
func (r *CreateWorkspaceRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.Name == "" {
		return models.MissingField("name")
	}
	return nil
}

// DeleteWorkspaceRequest is a request to delete a workspace.
type DeleteWorkspaceRequest struct {
	UserID      string  `path:"userID"`
	WorkspaceID ksid.ID `path:"wsID"`
}

// Validate validates the delete workspace request fields.
func (r *DeleteWorkspaceRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.WorkspaceID.IsZero() {
		return models.MissingField("wsID")
	}
	return nil
}

// --- Pages ---

// ListPagesRequest is a request to list a user's pages.
type ListPagesRequest struct {
	UserID string `path:"userID"`
}

// Validate validates the list pages request fields.
func (r *ListPagesRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	return nil
}

// CreatePageRequest is a request to create a page.
type CreatePageRequest struct {
	UserID      string   `path:"userID"`
	Title       string   `json:"title"`
	WorkspaceID string   `json:"workspace_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Validate validates the create page request fields.
func (r *CreatePageRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.Title == "" {
		return models.MissingField("title")
	}
	if r.WorkspaceID != "" {
		if _, err := ksid.Parse(r.WorkspaceID); err != nil {
			return models.BadRequest("invalid workspace_id")
		}
	}
	return nil
}

// UpdatePageRequest is a request to partially update a page. Absent fields
// are left untouched.
type UpdatePageRequest struct {
	UserID string   `path:"userID"`
	PageID ksid.ID  `path:"pageID"`
	Title  *string  `json:"title,omitempty"`
	Order  *int64   `json:"order,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Validate validates the update page request fields.
func (r *UpdatePageRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.PageID.IsZero() {
		return models.MissingField("pageID")
	}
	if r.Title != nil && *r.Title == "" {
		return models.BadRequest("title cannot be empty")
	}
	return nil
}

// DeletePageRequest is a request to delete a page and its blocks.
type DeletePageRequest struct {
	UserID string  `path:"userID"`
	PageID ksid.ID `path:"pageID"`
}

// Validate validates the delete page request fields.
func (r *DeletePageRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.PageID.IsZero() {
		return models.MissingField("pageID")
	}
	return nil
}

// --- Blocks ---

// ListBlocksRequest is a request to list a page's blocks in display order.
type ListBlocksRequest struct {
	UserID string  `path:"userID"`
	PageID ksid.ID `path:"pageID"`
}

// Validate validates the list blocks request fields.
func (r *ListBlocksRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.PageID.IsZero() {
		return models.MissingField("pageID")
	}
	return nil
}

// CreateBlockRequest is a request to create a block at the end of a page.
type CreateBlockRequest struct {
	UserID      string    `path:"userID"`
	PageID      ksid.ID   `path:"pageID"`
	Type        string    `json:"type,omitempty"`
	Content     string    `json:"content"`
	IndentLevel int       `json:"indent_level,omitempty"`
	IsChecked   bool      `json:"is_checked,omitempty"`
	Task        *TaskMeta `json:"task,omitempty"`
}

// Validate validates the create block request fields.
func (r *CreateBlockRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.PageID.IsZero() {
		return models.MissingField("pageID")
	}
	if r.Type != "" && !models.BlockType(r.Type).Valid() {
		return models.BadRequest(fmt.Sprintf("unknown block type %q", r.Type))
	}
	return nil
}

// UpdateBlockRequest is a request to partially update a block. Absent
// fields are left untouched; present fields are written even when
// zero-valued, so an explicit empty content clears the block.
type UpdateBlockRequest struct {
	UserID      string     `path:"userID"`
	BlockID     ksid.ID    `path:"blockID"`
	Type        *string    `json:"type,omitempty"`
	Content     *string    `json:"content,omitempty"`
	IndentLevel *int       `json:"indent_level,omitempty"`
	IsChecked   *bool      `json:"is_checked,omitempty"`
	Order       *int64     `json:"order,omitempty"`
	Task        *TaskPatch `json:"task,omitempty"`
}

// Validate validates the update block request fields.
func (r *UpdateBlockRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.BlockID.IsZero() {
		return models.MissingField("blockID")
	}
	if r.Type != nil && !models.BlockType(*r.Type).Valid() {
		return models.BadRequest(fmt.Sprintf("unknown block type %q", *r.Type))
	}
	return nil
}

// DeleteBlockRequest is a request to hard-delete a block.
type DeleteBlockRequest struct {
	UserID  string  `path:"userID"`
	BlockID ksid.ID `path:"blockID"`
}

// Validate validates the delete block request fields.
func (r *DeleteBlockRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.BlockID.IsZero() {
		return models.MissingField("blockID")
	}
	return nil
}

// ArchiveBlockRequest is a request to move a block to the recycle bin.
type ArchiveBlockRequest = DeleteBlockRequest

// ListArchiveRequest is a request to list the recycle bin.
type ListArchiveRequest = ListPagesRequest

// RestoreBlockRequest is a request to restore an archived block. PageID
// optionally redirects the restore to another page.
type RestoreBlockRequest struct {
	UserID  string  `path:"userID"`
	BlockID ksid.ID `path:"blockID"`
	PageID  string  `json:"page_id,omitempty"`
}

// Validate validates the restore block request fields.
func (r *RestoreBlockRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.BlockID.IsZero() {
		return models.MissingField("blockID")
	}
	if r.PageID != "" {
		if _, err := ksid.Parse(r.PageID); err != nil {
			return models.BadRequest("invalid page_id")
		}
	}
	return nil
}

// OrderAssignment pairs a block ID with its new order value.
type OrderAssignment struct {
	ID    string `json:"id"`
	Order int64  `json:"order"`
}

// ReorderBlocksRequest is a request to apply order assignments to a page in
// one atomic batch.
type ReorderBlocksRequest struct {
	UserID string            `path:"userID"`
	PageID ksid.ID           `path:"pageID"`
	Blocks []OrderAssignment `json:"blocks"`
}

// Validate validates the reorder blocks request fields.
func (r *ReorderBlocksRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.PageID.IsZero() {
		return models.MissingField("pageID")
	}
	if len(r.Blocks) == 0 {
		return models.MissingField("blocks")
	}
	for _, a := range r.Blocks {
		if _, err := ksid.Parse(a.ID); err != nil {
			return models.BadRequest(fmt.Sprintf("invalid block id %q", a.ID))
		}
	}
	return nil
}

// MoveBlockRequest is a request to move a block, and optionally its
// children, to another page.
type MoveBlockRequest struct {
	UserID   string   `path:"userID"`
	BlockID  string   `json:"block_id"`
	PageID   string   `json:"page_id"`
	Children []string `json:"children,omitempty"`
}

// Validate validates the move block request fields.
func (r *MoveBlockRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.BlockID == "" {
		return models.MissingField("block_id")
	}
	if r.PageID == "" {
		return models.MissingField("page_id")
	}
	if _, err := ksid.Parse(r.BlockID); err != nil {
		return models.BadRequest("invalid block_id")
	}
	if _, err := ksid.Parse(r.PageID); err != nil {
		return models.BadRequest("invalid page_id")
	}
	for _, c := range r.Children {
		if _, err := ksid.Parse(c); err != nil {
			return models.BadRequest(fmt.Sprintf("invalid child id %q", c))
		}
	}
	return nil
}

// --- Tasks ---

// ListTasksRequest is a request for a GTD status view.
type ListTasksRequest struct {
	UserID string `path:"userID"`
	Status string `query:"status"`
}

// Validate validates the list tasks request fields.
func (r *ListTasksRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.Status == "" {
		return models.MissingField("status")
	}
	if !models.TaskStatus(r.Status).Valid() {
		return models.BadRequest(fmt.Sprintf("unknown task status %q", r.Status))
	}
	return nil
}

// TaskPatch is a partial update of a block's task metadata.
type TaskPatch struct {
	Status   *string `json:"status,omitempty"`
	Value    *int    `json:"value,omitempty"`
	Effort   *int    `json:"effort,omitempty"`
	DueDate  *string `json:"due_date,omitempty"`
	Assignee *string `json:"assignee,omitempty"`
	Company  *string `json:"company,omitempty"`
}

// PatchTaskRequest is a request to update a todo block's task metadata.
type PatchTaskRequest struct {
	UserID  string  `path:"userID"`
	BlockID ksid.ID `path:"blockID"`
	TaskPatch
}

// Validate validates the patch task request fields.
func (r *PatchTaskRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	if r.BlockID.IsZero() {
		return models.MissingField("blockID")
	}
	if r.Status != nil && !models.TaskStatus(*r.Status).Valid() {
		return models.BadRequest(fmt.Sprintf("unknown task status %q", *r.Status))
	}
	return nil
}

// --- Capture ---

// CaptureRequest is the quick-capture payload. Content starting with "[] "
// or "[x] " becomes an unchecked or checked todo block; anything else a
// paragraph.
type CaptureRequest struct {
	Content   string `json:"content"`
	UserID    string `json:"userId"`
	PageTitle string `json:"pageTitle,omitempty"`
}

// Validate validates the capture request fields.
func (r *CaptureRequest) Validate() error {
	if r.Content == "" {
		return models.MissingField("content")
	}
	if r.UserID == "" {
		return models.MissingField("userId")
	}
	return nil
}

// --- Edit session ---

// SessionMessage is one client message on a page edit session WebSocket.
// Type selects which fields are read:
//
//	edit         block_id, content
//	flush        -
//	drag_start   block_id, children
//	drag_hover   target_id, page_id, pointer_y, target_mid_y
//	drag_drop    -
//	drag_cancel  -
type SessionMessage struct {
	Type       string    `json:"type"`
	BlockID    ksid.ID   `json:"block_id,omitempty"`
	Content    string    `json:"content,omitempty"`
	Children   []ksid.ID `json:"children,omitempty"`
	TargetID   ksid.ID   `json:"target_id,omitempty"`
	PageID     ksid.ID   `json:"page_id,omitempty"`
	PointerY   float64   `json:"pointer_y,omitempty"`
	TargetMidY float64   `json:"target_mid_y,omitempty"`
}

// --- Admin ---

// WipeUserRequest is a request to delete all of a user's data.
type WipeUserRequest struct {
	UserID string `path:"userID"`
}

// Validate validates the wipe user request fields.
func (r *WipeUserRequest) Validate() error {
	if r.UserID == "" {
		return models.MissingField("userID")
	}
	return nil
}

// StatsRequest is a request for per-user document counts.
type StatsRequest struct{}

// Validate is a no-op for StatsRequest.
func (r *StatsRequest) Validate() error {
	return nil
}

// HealthRequest is a request for the health check.
type HealthRequest struct{}

// Validate is a no-op for HealthRequest.
func (r *HealthRequest) Validate() error {
	return nil
}
