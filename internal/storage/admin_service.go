package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/jsonldb"
	"github.com/notelite/notelite/internal/models"
)

// AdminService implements the operator endpoints: per-user statistics and
// full user wipes.
type AdminService struct {
	store *Store
}

// NewAdminService creates a new admin service.
func NewAdminService(store *Store) *AdminService {
	return &AdminService{store: store}
}

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

// Stats returns per-user document counts for every known user.
func (s *AdminService) Stats(ctx context.Context) ([]UserStats, error) {
	users, err := s.store.Users()
	if err != nil {
		return nil, err
	}
	stats := make([]UserStats, 0, len(users))
	for _, userID := range users {
		u, err := s.store.User(userID)
		if err != nil {
			return nil, err
		}
		st := UserStats{
			UserID:     userID,
			Pages:      u.pages.Len(),
			Blocks:     u.blocks.Len(),
			Archived:   u.archive.Len(),
			Workspaces: u.workspaces.Len(),
		}
		for b := range u.blocks.All() {
			if b.Type == models.BlockTypeTodo && b.Task != nil {
				st.Tasks++
				if b.Task.Status == models.TaskStatusDone {
					st.TasksDone++
				}
			}
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// WipeResult reports what a wipe removed.
type WipeResult struct {
	UserID  string `json:"user_id"`
	Deleted int    `json:"deleted"`
}

// WipeUser deletes every document the user owns, table by table in batches,
// then removes the user directory and drops the cached store. Returns the
// number of documents removed; on a partial failure the count reflects what
// was actually deleted.
func (s *AdminService) WipeUser(ctx context.Context, userID string) (*WipeResult, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	res := &WipeResult{UserID: userID}
	for _, table := range []*jsonldb.Table[*models.Block]{u.blocks, u.archive} {
		n, err := wipeTable(table)
		res.Deleted += n
		if err != nil {
			return res, err
		}
	}
	n, err := wipeTable(u.pages)
	res.Deleted += n
	if err != nil {
		return res, err
	}
	n, err = wipeTable(u.workspaces)
	res.Deleted += n
	if err != nil {
		return res, err
	}

	s.store.Forget(userID)
	dir := filepath.Join(s.store.Root(), userID)
	if err := os.RemoveAll(dir); err != nil {
		return res, fmt.Errorf("failed to remove user directory: %w", err)
	}
	slog.InfoContext(ctx, "Wiped user", "user", userID, "deleted", res.Deleted)
	return res, nil
}

// wipeTable empties a table in bounded batches and returns how many rows
// were removed before any failure.
func wipeTable[T jsonldb.Row[T]](table *jsonldb.Table[T]) (int, error) {
	var ids []ksid.ID
	for row := range table.All() {
		ids = append(ids, row.GetID())
	}
	deleted := 0
	err := jsonldb.Chunk(len(ids), func(start, end int) error {
		batch := table.NewBatch()
		for _, id := range ids[start:end] {
			batch.Delete(id)
		}
		if err := batch.Commit(); err != nil {
			return err
		}
		deleted += end - start
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("failed to wipe %s: %w", filepath.Base(table.Path()), err)
	}
	return deleted, nil
}
