package handlers

import (
	"context"

	"github.com/notelite/notelite/internal/models"
	"github.com/notelite/notelite/internal/server/dto"
	"github.com/notelite/notelite/internal/storage"
)

// TaskHandler handles GTD task requests.
type TaskHandler struct {
	tasks *storage.TaskService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(tasks *storage.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// ListTasks returns one GTD status view, highest return-on-investment
// first.
func (h *TaskHandler) ListTasks(ctx context.Context, req *dto.ListTasksRequest) (*dto.ListBlocksResponse, error) {
	tasks, err := h.tasks.ListByStatus(ctx, req.UserID, models.TaskStatus(req.Status))
	if err != nil {
		return nil, err
	}
	return &dto.ListBlocksResponse{Blocks: blocksToResponse(tasks)}, nil
}

// PatchTask updates a todo block's task metadata.
func (h *TaskHandler) PatchTask(ctx context.Context, req *dto.PatchTaskRequest) (*dto.BlockResponse, error) {
	block, err := h.tasks.PatchTaskMeta(ctx, req.UserID, req.BlockID, taskPatchFromDTO(&req.TaskPatch))
	if err != nil {
		return nil, err
	}
	return blockToResponse(block), nil
}
