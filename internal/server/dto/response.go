package dto

// --- Common Responses ---

// OkResponse is a simple success response.
type OkResponse struct {
	Ok bool `json:"ok"`
}

// --- Workspace Responses ---

// WorkspaceResponse is a workspace representation.
type WorkspaceResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Mode     string `json:"mode"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

// ListWorkspacesResponse is a response containing a list of workspaces.
type ListWorkspacesResponse struct {
	Workspaces []*WorkspaceResponse `json:"workspaces"`
}

// --- Page Responses ---

// PageResponse is a page representation.
type PageResponse struct {
	ID          string   `json:"id"`
	WorkspaceID string   `json:"workspace_id,omitempty"`
	Title       string   `json:"title"`
	Order       int64    `json:"order"`
	IsFixed     bool     `json:"is_fixed,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Created     string   `json:"created"`
	Modified    string   `json:"modified"`
}

// ListPagesResponse is a response containing a list of pages.
type ListPagesResponse struct {
	Pages []*PageResponse `json:"pages"`
}

// DeletePageResponse reports how many blocks the cascade removed.
type DeletePageResponse struct {
	Ok            bool `json:"ok"`
	BlocksDeleted int  `json:"blocks_deleted"`
}

// --- Block Responses ---

// TaskMeta is the task metadata of a todo block. ROI is derived from value
// and effort at read time, never stored.
type TaskMeta struct {
	Status   string  `json:"status"`
	Value    int     `json:"value,omitempty"`
	Effort   int     `json:"effort,omitempty"`
	ROI      float64 `json:"roi,omitempty"`
	DueDate  string  `json:"due_date,omitempty"`
	Assignee string  `json:"assignee,omitempty"`
	Company  string  `json:"company,omitempty"`
}

// BlockResponse is a block representation.
type BlockResponse struct {
	ID          string    `json:"id"`
	PageID      string    `json:"page_id"`
	Type        string    `json:"type"`
	Content     string    `json:"content"`
	IndentLevel int       `json:"indent_level,omitempty"`
	IsChecked   bool      `json:"is_checked,omitempty"`
	Order       int64     `json:"order"`
	Task        *TaskMeta `json:"task,omitempty"`
	Created     string    `json:"created"`
	Modified    string    `json:"modified"`
}

// ListBlocksResponse is a response containing a page's blocks in display
// order.
type ListBlocksResponse struct {
	Blocks []*BlockResponse `json:"blocks"`
}

// MoveBlockResponse contains the relocated blocks with their new
// identifiers, the primary block first.
type MoveBlockResponse struct {
	Blocks []*BlockResponse `json:"blocks"`
}

// --- Capture Responses ---

// CaptureResponse reports where the captured content landed.
type CaptureResponse struct {
	BlockID string `json:"block_id"`
	PageID  string `json:"page_id"`
}

// --- Admin Responses ---

// UserStats summarizes one user's data.
type UserStats struct {
	UserID     string `json:"user_id"`
	Pages      int    `json:"pages"`
	Blocks     int    `json:"blocks"`
	Archived   int    `json:"archived"`
	Workspaces int    `json:"workspaces"`
	Tasks      int    `json:"tasks"`
	TasksDone  int    `json:"tasks_done"`
}

// StatsResponse is a response containing per-user document counts.
type StatsResponse struct {
	Users []UserStats `json:"users"`
}

// WipeUserResponse reports what a wipe removed.
type WipeUserResponse struct {
	UserID  string `json:"user_id"`
	Deleted int    `json:"deleted"`
}

// --- Health Responses ---

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
