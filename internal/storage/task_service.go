package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/models"
)

// TaskService handles GTD task metadata carried by todo blocks: status
// transitions, value/effort scoring and the per-status views.
type TaskService struct {
	store *Store
}

// NewTaskService creates a new task service.
func NewTaskService(store *Store) *TaskService {
	return &TaskService{store: store}
}

// PatchTaskMeta applies a partial update to a todo block's task metadata.
// Non-todo blocks are rejected; the metadata is created on first patch.
func (s *TaskService) PatchTaskMeta(ctx context.Context, userID string, blockID ksid.ID, patch *models.TaskPatch) (*models.Block, error) {
	if err := patch.Validate(); err != nil {
		return nil, models.BadRequest(err.Error())
	}
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	// The type check runs under the table lock so a concurrent type change
	// cannot slip task metadata onto a non-todo block.
	block, err := u.blocks.Modify(blockID, func(b *models.Block) error {
		if b.Type != models.BlockTypeTodo {
			return models.BadRequest(fmt.Sprintf("block of type %q cannot carry task metadata", b.Type))
		}
		if b.Task == nil {
			b.Task = &models.TaskMeta{Status: models.TaskStatusNext}
		}
		patch.Apply(b.Task)
		b.Modified = time.Now()
		return nil
	})
	if err != nil {
		if u.blocks.Get(blockID) == nil {
			return nil, models.NotFound("block")
		}
		var apiErr *models.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("failed to patch task: %w", err)
	}
	return block, nil
}

// CompleteTask marks a todo block done: task status becomes done and the
// checkbox is set in the same write.
func (s *TaskService) CompleteTask(ctx context.Context, userID string, blockID ksid.ID) (*models.Block, error) {
	return s.setDone(ctx, userID, blockID, true)
}

// ReopenTask reverts a completed task to the next-actions queue and
// unchecks it.
func (s *TaskService) ReopenTask(ctx context.Context, userID string, blockID ksid.ID) (*models.Block, error) {
	return s.setDone(ctx, userID, blockID, false)
}

func (s *TaskService) setDone(ctx context.Context, userID string, blockID ksid.ID, done bool) (*models.Block, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	block, err := u.blocks.Modify(blockID, func(b *models.Block) error {
		if b.Type != models.BlockTypeTodo {
			return models.BadRequest(fmt.Sprintf("block of type %q is not a task", b.Type))
		}
		if b.Task == nil {
			b.Task = &models.TaskMeta{}
		}
		if done {
			b.Task.Status = models.TaskStatusDone
		} else {
			b.Task.Status = models.TaskStatusNext
		}
		b.IsChecked = done
		b.Modified = time.Now()
		return nil
	})
	if err != nil {
		if u.blocks.Get(blockID) == nil {
			return nil, models.NotFound("block")
		}
		var apiErr *models.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return block, nil
}

// ListByStatus returns every todo block with the given task status, sorted
// by descending return-on-investment (value over effort); unscored tasks
// sort last, ties broken by display order.
func (s *TaskService) ListByStatus(ctx context.Context, userID string, status models.TaskStatus) ([]*models.Block, error) {
	if !status.Valid() {
		return nil, models.BadRequest(fmt.Sprintf("unknown task status %q", status))
	}
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	var tasks []*models.Block
	for b := range u.blocks.All() {
		if b.Type == models.BlockTypeTodo && b.Task != nil && b.Task.Status == status {
			tasks = append(tasks, b)
		}
	}
	slices.SortFunc(tasks, func(a, b *models.Block) int {
		ra, rb := a.Task.ROI(), b.Task.ROI()
		switch {
		case ra > rb:
			return -1
		case ra < rb:
			return 1
		}
		return models.CompareBlocks(a, b)
	})
	return tasks, nil
}

// Overdue returns todo blocks whose due date has passed and which are not
// done, soonest due first.
func (s *TaskService) Overdue(ctx context.Context, userID string, now time.Time) ([]*models.Block, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	var tasks []*models.Block
	for b := range u.blocks.All() {
		t := b.Task
		if b.Type != models.BlockTypeTodo || t == nil || t.Status == models.TaskStatusDone {
			continue
		}
		if !t.DueDate.IsZero() && t.DueDate.Before(now) {
			tasks = append(tasks, b)
		}
	}
	slices.SortFunc(tasks, func(a, b *models.Block) int {
		return a.Task.DueDate.Compare(b.Task.DueDate)
	})
	return tasks, nil
}
