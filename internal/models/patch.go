// Typed partial-update structures.
//
// The original store merged arbitrary field subsets into documents. Here a
// patch is an explicit struct of optional fields: nil means "leave the field
// untouched", a non-nil pointer means "write this value" (including zero
// values, which is how a field is cleared).

package models

import (
	"fmt"
	"time"

	"github.com/maruel/ksid"
)

// BlockPatch is a partial update of a Block.
type BlockPatch struct {
	Type        *BlockType `json:"type,omitempty"`
	Content     *string    `json:"content,omitempty"`
	IndentLevel *int       `json:"indent_level,omitempty"`
	IsChecked   *bool      `json:"is_checked,omitempty"`
	Order       *int64     `json:"order,omitempty"`
	Task        *TaskPatch `json:"task,omitempty"`
}

// IsZero reports whether the patch touches nothing.
func (p *BlockPatch) IsZero() bool {
	return p.Type == nil && p.Content == nil && p.IndentLevel == nil &&
		p.IsChecked == nil && p.Order == nil && p.Task == nil
}

// Validate checks the patch before submission.
func (p *BlockPatch) Validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("unknown block type %q", *p.Type)
	}
	if p.IndentLevel != nil && (*p.IndentLevel < 0 || *p.IndentLevel > MaxIndentLevel) {
		return fmt.Errorf("indent level %d out of range [0, %d]", *p.IndentLevel, MaxIndentLevel)
	}
	if p.Task != nil {
		if err := p.Task.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges the patch into the block. Fields not present in the patch
// are left untouched.
func (p *BlockPatch) Apply(b *Block) {
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.IndentLevel != nil {
		b.IndentLevel = *p.IndentLevel
	}
	if p.IsChecked != nil {
		b.IsChecked = *p.IsChecked
	}
	if p.Order != nil {
		b.Order = *p.Order
	}
	if p.Task != nil {
		if b.Task == nil {
			b.Task = &TaskMeta{Status: TaskStatusNext}
		}
		p.Task.Apply(b.Task)
	}
}

// TaskPatch is a partial update of a block's task metadata.
type TaskPatch struct {
	Status       *TaskStatus `json:"status,omitempty"`
	Value        *int        `json:"value,omitempty"`
	Effort       *int        `json:"effort,omitempty"`
	DueDate      *time.Time  `json:"due_date,omitempty"`
	Assignee     *string     `json:"assignee,omitempty"`
	Company      *string     `json:"company,omitempty"`
	ParentTaskID *ksid.ID    `json:"parent_task_id,omitempty"`
	SubtaskIDs   *[]ksid.ID  `json:"subtask_ids,omitempty"`
}

// Validate checks the patch before submission.
func (p *TaskPatch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("unknown task status %q", *p.Status)
	}
	if p.Value != nil && (*p.Value < 0 || *p.Value > 10) {
		return fmt.Errorf("task value %d out of range [0, 10]", *p.Value)
	}
	if p.Effort != nil && (*p.Effort < 0 || *p.Effort > 10) {
		return fmt.Errorf("task effort %d out of range [0, 10]", *p.Effort)
	}
	return nil
}

// Apply merges the patch into the task metadata.
func (p *TaskPatch) Apply(m *TaskMeta) {
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.Value != nil {
		m.Value = *p.Value
	}
	if p.Effort != nil {
		m.Effort = *p.Effort
	}
	if p.DueDate != nil {
		m.DueDate = *p.DueDate
	}
	if p.Assignee != nil {
		m.Assignee = *p.Assignee
	}
	if p.Company != nil {
		m.Company = *p.Company
	}
	if p.ParentTaskID != nil {
		m.ParentTaskID = *p.ParentTaskID
	}
	if p.SubtaskIDs != nil {
		m.SubtaskIDs = *p.SubtaskIDs
	}
}

// PagePatch is a partial update of a Page.
type PagePatch struct {
	Title       *string   `json:"title,omitempty"`
	Order       *int64    `json:"order,omitempty"`
	WorkspaceID *ksid.ID  `json:"workspace_id,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// Validate checks the patch before submission.
func (p *PagePatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return fmt.Errorf("page title cannot be empty")
	}
	return nil
}

// Apply merges the patch into the page.
func (p *PagePatch) Apply(page *Page) {
	if p.Title != nil {
		page.Title = *p.Title
	}
	if p.Order != nil {
		page.Order = *p.Order
	}
	if p.WorkspaceID != nil {
		page.WorkspaceID = *p.WorkspaceID
	}
	if p.Tags != nil {
		page.Tags = *p.Tags
	}
}
