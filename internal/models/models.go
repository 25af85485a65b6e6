// Package models defines the core domain types and API contracts.
//
// It includes domain entities (Block, Page, Workspace, TaskMeta), typed
// patch structures for partial updates, and structured error handling with
// APIError.
package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/maruel/ksid"
)

// BlockType is the enumerated content kind of a block.
type BlockType string

const (
	// BlockTypeParagraph is plain text.
	BlockTypeParagraph BlockType = "paragraph"
	// BlockTypeHeading1 is a top-level heading.
	BlockTypeHeading1 BlockType = "heading1"
	// BlockTypeHeading2 is a second-level heading.
	BlockTypeHeading2 BlockType = "heading2"
	// BlockTypeHeading3 is a third-level heading.
	BlockTypeHeading3 BlockType = "heading3"
	// BlockTypeBullet is a bulleted list item.
	BlockTypeBullet BlockType = "bullet"
	// BlockTypeTodo is a checkable task item. Only todo blocks carry task
	// metadata and a checked flag.
	BlockTypeTodo BlockType = "todo"
	// BlockTypeQuote is a block quote.
	BlockTypeQuote BlockType = "quote"
	// BlockTypeCode is a code block.
	BlockTypeCode BlockType = "code"
	// BlockTypeDivider is a horizontal rule; its content is ignored.
	BlockTypeDivider BlockType = "divider"
)

// blockTypes lists every valid block type.
var blockTypes = []BlockType{
	BlockTypeParagraph, BlockTypeHeading1, BlockTypeHeading2, BlockTypeHeading3,
	BlockTypeBullet, BlockTypeTodo, BlockTypeQuote, BlockTypeCode, BlockTypeDivider,
}

// Valid reports whether t is a known block type.
func (t BlockType) Valid() bool {
	return slices.Contains(blockTypes, t)
}

// MaxIndentLevel bounds block nesting depth.
const MaxIndentLevel = 8

// ClampIndent clamps an indent level into [0, MaxIndentLevel].
func ClampIndent(level int) int {
	return max(0, min(level, MaxIndentLevel))
}

// Block represents one atomic content unit within a page.
type Block struct {
	ID          ksid.ID   `json:"id"`
	PageID      ksid.ID   `json:"page_id"`
	WorkspaceID ksid.ID   `json:"workspace_id,omitempty"`
	Type        BlockType `json:"type"`
	Content     string    `json:"content,omitempty"`
	IndentLevel int       `json:"indent_level,omitempty"`
	IsChecked   bool      `json:"is_checked,omitempty"`
	// Order defines sibling sequence within the page. Sorting ascending by
	// (Order, ID) yields the display order; the ID fallback makes the order
	// total even when interleaved batches produced duplicate Order values.
	Order    int64     `json:"order"`
	Task     *TaskMeta `json:"task,omitempty"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Clone returns a deep copy of the Block.
func (b *Block) Clone() *Block {
	c := *b
	if b.Task != nil {
		c.Task = b.Task.Clone()
	}
	return &c
}

// GetID returns the Block's ID.
func (b *Block) GetID() ksid.ID {
	return b.ID
}

// Validate checks the block's internal consistency.
func (b *Block) Validate() error {
	if b.ID.IsZero() {
		return fmt.Errorf("block id cannot be empty")
	}
	if b.PageID.IsZero() {
		return fmt.Errorf("block page id cannot be empty")
	}
	if !b.Type.Valid() {
		return fmt.Errorf("unknown block type %q", b.Type)
	}
	if b.IndentLevel < 0 || b.IndentLevel > MaxIndentLevel {
		return fmt.Errorf("indent level %d out of range [0, %d]", b.IndentLevel, MaxIndentLevel)
	}
	if b.Task != nil {
		if b.Type != BlockTypeTodo {
			return fmt.Errorf("task metadata only allowed on todo blocks, got %q", b.Type)
		}
		if err := b.Task.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CompareBlocks orders blocks ascending by Order, ties broken by ID.
// The tie-break keeps the sequence deterministic when duplicate Order values
// exist (e.g. after interleaved reorder batches).
func CompareBlocks(a, b *Block) int {
	switch {
	case a.Order < b.Order:
		return -1
	case a.Order > b.Order:
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// SortBlocks sorts blocks in display order.
func SortBlocks(blocks []*Block) {
	slices.SortFunc(blocks, CompareBlocks)
}

// TaskStatus is a GTD workflow state.
type TaskStatus string

const (
	// TaskStatusNow marks tasks being worked on.
	TaskStatusNow TaskStatus = "now"
	// TaskStatusNext marks the next actions queue.
	TaskStatusNext TaskStatus = "next"
	// TaskStatusWaiting marks tasks blocked on someone else.
	TaskStatusWaiting TaskStatus = "waiting"
	// TaskStatusSomeday marks deferred, unscheduled tasks.
	TaskStatusSomeday TaskStatus = "someday"
	// TaskStatusDone marks completed tasks.
	TaskStatusDone TaskStatus = "done"
)

var taskStatuses = []TaskStatus{
	TaskStatusNow, TaskStatusNext, TaskStatusWaiting, TaskStatusSomeday, TaskStatusDone,
}

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	return slices.Contains(taskStatuses, s)
}

// TaskMeta is the task metadata embedded in a todo block.
//
// ROI is intentionally not stored: it is derived from Value and Effort on
// read via [TaskMeta.ROI], so it can never go stale.
type TaskMeta struct {
	Status       TaskStatus `json:"status"`
	Value        int        `json:"value,omitempty"`  // 1..10
	Effort       int        `json:"effort,omitempty"` // 1..10
	DueDate      time.Time  `json:"due_date,omitzero"`
	Assignee     string     `json:"assignee,omitempty"`
	Company      string     `json:"company,omitempty"`
	ParentTaskID ksid.ID    `json:"parent_task_id,omitempty"`
	SubtaskIDs   []ksid.ID  `json:"subtask_ids,omitempty"`
}

// Clone returns a deep copy of the TaskMeta.
func (m *TaskMeta) Clone() *TaskMeta {
	c := *m
	if m.SubtaskIDs != nil {
		c.SubtaskIDs = slices.Clone(m.SubtaskIDs)
	}
	return &c
}

// ROI returns value divided by effort, or 0 when either is unset.
func (m *TaskMeta) ROI() float64 {
	if m.Value <= 0 || m.Effort <= 0 {
		return 0
	}
	return float64(m.Value) / float64(m.Effort)
}

// Validate checks the task metadata.
func (m *TaskMeta) Validate() error {
	if !m.Status.Valid() {
		return fmt.Errorf("unknown task status %q", m.Status)
	}
	if m.Value < 0 || m.Value > 10 {
		return fmt.Errorf("task value %d out of range [0, 10]", m.Value)
	}
	if m.Effort < 0 || m.Effort > 10 {
		return fmt.Errorf("task effort %d out of range [0, 10]", m.Effort)
	}
	return nil
}

// Page is a named, ordered container of blocks, owned by one user.
type Page struct {
	ID          ksid.ID `json:"id"`
	WorkspaceID ksid.ID `json:"workspace_id,omitempty"`
	Title       string  `json:"title"`
	Order       int64   `json:"order"`
	// IsFixed marks the seeded GTD pages (Inbox, Next Actions, ...) which
	// cannot be renamed or deleted.
	IsFixed  bool      `json:"is_fixed,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Clone returns a deep copy of the Page.
func (p *Page) Clone() *Page {
	c := *p
	if p.Tags != nil {
		c.Tags = slices.Clone(p.Tags)
	}
	return &c
}

// GetID returns the Page's ID.
func (p *Page) GetID() ksid.ID {
	return p.ID
}

// Validate checks the page's internal consistency.
func (p *Page) Validate() error {
	if p.ID.IsZero() {
		return fmt.Errorf("page id cannot be empty")
	}
	if p.Title == "" {
		return fmt.Errorf("page title cannot be empty")
	}
	return nil
}

// ComparePages orders pages ascending by Order, ties broken by ID.
func ComparePages(a, b *Page) int {
	switch {
	case a.Order < b.Order:
		return -1
	case a.Order > b.Order:
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// WorkspaceMode distinguishes workspace flavors.
type WorkspaceMode string

const (
	// WorkspaceModeGTD is the task-management workflow mode.
	WorkspaceModeGTD WorkspaceMode = "gtd"
	// WorkspaceModeNotes is a legacy mode: existing workspaces with it still
	// parse, but creating new ones is rejected.
	WorkspaceModeNotes WorkspaceMode = "notes"
)

// Workspace is a named, mode-scoped grouping of pages. It references pages
// via Page.WorkspaceID rather than containment.
type Workspace struct {
	ID       ksid.ID       `json:"id"`
	Name     string        `json:"name"`
	Mode     WorkspaceMode `json:"mode"`
	Created  time.Time     `json:"created"`
	Modified time.Time     `json:"modified"`
}

// Clone returns a copy of the Workspace.
func (w *Workspace) Clone() *Workspace {
	c := *w
	return &c
}

// GetID returns the Workspace's ID.
func (w *Workspace) GetID() ksid.ID {
	return w.ID
}

// Validate checks the workspace.
func (w *Workspace) Validate() error {
	if w.ID.IsZero() {
		return fmt.Errorf("workspace id cannot be empty")
	}
	if w.Name == "" {
		return fmt.Errorf("workspace name cannot be empty")
	}
	if w.Mode != WorkspaceModeGTD && w.Mode != WorkspaceModeNotes {
		return fmt.Errorf("unknown workspace mode %q", w.Mode)
	}
	return nil
}

// FixedPageTitles are the GTD pages seeded for every user, in display order.
var FixedPageTitles = []string{"Inbox", "Next Actions", "Waiting For", "Someday"}
