package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/models"
)

func TestMain(m *testing.M) {
	if err := ksid.InitIDSlice(0, 1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testEnv struct {
	store      *Store
	config     *Config
	blocks     *BlockService
	pages      *PageService
	workspaces *WorkspaceService
	tasks      *TaskService
	admin      *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	config := DefaultConfig()
	pages := NewPageService(store, config)
	return &testEnv{
		store:      store,
		config:     config,
		blocks:     NewBlockService(store, config),
		pages:      pages,
		workspaces: NewWorkspaceService(store, pages),
		tasks:      NewTaskService(store),
		admin:      NewAdminService(store),
	}
}

func (e *testEnv) mustCreatePage(t *testing.T, userID, title string) *models.Page {
	t.Helper()
	page, err := e.pages.CreatePage(context.Background(), userID, title, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	return page
}

func (e *testEnv) mustCreateBlock(t *testing.T, userID string, pageID ksid.ID, content string) *models.Block {
	t.Helper()
	block, err := e.blocks.CreateBlock(context.Background(), userID, pageID, BlockFields{Content: content})
	if err != nil {
		t.Fatal(err)
	}
	return block
}

func isCode(err error, code models.ErrorCode) bool {
	var apiErr *models.APIError
	return errors.As(err, &apiErr) && apiErr.Code() == code
}

func TestBlockService_CreateBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page := env.mustCreatePage(t, "alice", "Notes")

	for i, content := range []string{"first", "second", "third"} {
		block := env.mustCreateBlock(t, "alice", page.ID, content)
		if block.Order != int64(i) {
			t.Errorf("block %d: order = %d, want %d", i, block.Order, i)
		}
		if block.Type != models.BlockTypeParagraph {
			t.Errorf("block %d: type = %q, want paragraph default", i, block.Type)
		}
	}

	_, err := env.blocks.CreateBlock(ctx, "alice", ksid.NewID(), BlockFields{Content: "orphan"})
	if !isCode(err, models.ErrorCodeNotFound) {
		t.Errorf("create on missing page: err = %v, want not found", err)
	}
	_, err = env.blocks.CreateBlock(ctx, "alice", 0, BlockFields{})
	if !isCode(err, models.ErrorCodeMissingField) {
		t.Errorf("create with zero page ID: err = %v, want missing field", err)
	}
}

func TestBlockService_GetBlocksOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page := env.mustCreatePage(t, "alice", "Notes")
	a := env.mustCreateBlock(t, "alice", page.ID, "a")
	b := env.mustCreateBlock(t, "alice", page.ID, "b")
	c := env.mustCreateBlock(t, "alice", page.ID, "c")

	// Force an order collision between b and c. The tie must break on ID, so
	// the listing stays deterministic.
	order := a.Order
	if _, err := env.blocks.UpdateBlock(ctx, "alice", c.ID, &models.BlockPatch{Order: &order}); err != nil {
		t.Fatal(err)
	}
	got, err := env.blocks.GetBlocks(ctx, "alice", page.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantIDs := []ksid.ID{a.ID, c.ID, b.ID}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d blocks, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("blocks[%d].ID = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestBlockService_UpdateBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page := env.mustCreatePage(t, "alice", "Notes")
	block := env.mustCreateBlock(t, "alice", page.ID, "draft")

	content := ""
	checked := true
	typ := models.BlockTypeTodo
	updated, err := env.blocks.UpdateBlock(ctx, "alice", block.ID, &models.BlockPatch{
		Type:      &typ,
		Content:   &content,
		IsChecked: &checked,
	})
	if err != nil {
		t.Fatal(err)
	}
	// An explicit empty string clears the content; absent fields are kept.
	if updated.Content != "" {
		t.Errorf("content = %q, want cleared", updated.Content)
	}
	if !updated.IsChecked || updated.Type != models.BlockTypeTodo {
		t.Errorf("type/checked not applied: %+v", updated)
	}
	if updated.Order != block.Order {
		t.Errorf("order changed from %d to %d without a patch", block.Order, updated.Order)
	}

	_, err = env.blocks.UpdateBlock(ctx, "alice", ksid.NewID(), &models.BlockPatch{Content: &content})
	if !isCode(err, models.ErrorCodeNotFound) {
		t.Errorf("update missing block: err = %v, want not found", err)
	}
}

func TestBlockService_ArchiveRestore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page := env.mustCreatePage(t, "alice", "Notes")
	block := env.mustCreateBlock(t, "alice", page.ID, "keep me")
	env.mustCreateBlock(t, "alice", page.ID, "filler")

	if err := env.blocks.ArchiveBlock(ctx, "alice", block.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.blocks.GetBlock(ctx, "alice", block.ID); !isCode(err, models.ErrorCodeNotFound) {
		t.Fatalf("archived block still live: err = %v", err)
	}
	archived, err := env.blocks.ListArchived(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(archived) != 1 || archived[0].ID != block.ID {
		t.Fatalf("archive listing = %v", archived)
	}
	if archived[0].Content != "keep me" || !archived[0].Created.Equal(block.Created) {
		t.Error("archive did not preserve content and creation time")
	}

	restored, err := env.blocks.RestoreBlock(ctx, "alice", block.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if restored.ID != block.ID {
		t.Errorf("restore changed ID from %s to %s", block.ID, restored.ID)
	}
	if restored.Order != 1 {
		t.Errorf("restored order = %d, want append position 1", restored.Order)
	}
	if archived, _ := env.blocks.ListArchived(ctx, "alice"); len(archived) != 0 {
		t.Errorf("archive not emptied after restore: %v", archived)
	}
}

func TestBlockService_MoveBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page := env.mustCreatePage(t, "alice", "Notes")
	a := env.mustCreateBlock(t, "alice", page.ID, "a")
	b := env.mustCreateBlock(t, "alice", page.ID, "b")
	c := env.mustCreateBlock(t, "alice", page.ID, "c")

	tests := []struct {
		name    string
		blockID ksid.ID
		target  ksid.ID
		pos     Position
		want    []string
	}{
		{"c above a", c.ID, a.ID, PositionAbove, []string{"c", "a", "b"}},
		{"c below b", c.ID, b.ID, PositionBelow, []string{"a", "b", "c"}},
		{"a below b", a.ID, b.ID, PositionBelow, []string{"b", "a", "c"}},
		{"a above b (undo)", a.ID, b.ID, PositionAbove, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := env.blocks.MoveBlock(ctx, "alice", page.ID, tt.blockID, tt.target, tt.pos); err != nil {
				t.Fatal(err)
			}
			got, err := env.blocks.GetBlocks(ctx, "alice", page.ID)
			if err != nil {
				t.Fatal(err)
			}
			for i, want := range tt.want {
				if got[i].Content != want {
					t.Errorf("blocks[%d] = %q, want %q", i, got[i].Content, want)
				}
			}
		})
	}

	if err := env.blocks.MoveBlock(ctx, "alice", page.ID, ksid.NewID(), a.ID, PositionAbove); !isCode(err, models.ErrorCodeNotFound) {
		t.Errorf("move of missing block: err = %v, want not found", err)
	}
	if err := env.blocks.MoveBlock(ctx, "alice", page.ID, a.ID, b.ID, "inside"); !isCode(err, models.ErrorCodeValidationFailed) {
		t.Errorf("move with bad position: err = %v, want validation error", err)
	}
}

func TestBlockService_MoveBlockToPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	src := env.mustCreatePage(t, "alice", "Inbox")
	dst := env.mustCreatePage(t, "alice", "Projects")
	env.mustCreateBlock(t, "alice", dst.ID, "existing")
	parent := env.mustCreateBlock(t, "alice", src.ID, "task")
	child := env.mustCreateBlock(t, "alice", src.ID, "subtask")

	moved, err := env.blocks.MoveBlockToPage(ctx, "alice", parent.ID, dst.ID, child.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(moved) != 2 {
		t.Fatalf("moved %d blocks, want 2", len(moved))
	}
	// Identity is not preserved across pages, and the moved blocks append
	// after the destination's existing content.
	if moved[0].ID == parent.ID || moved[1].ID == child.ID {
		t.Error("moved blocks kept their source IDs")
	}
	if moved[0].Order != 1 || moved[1].Order != 2 {
		t.Errorf("moved orders = %d, %d, want 1, 2", moved[0].Order, moved[1].Order)
	}
	if remaining, _ := env.blocks.GetBlocks(ctx, "alice", src.ID); len(remaining) != 0 {
		t.Errorf("source page still has %d blocks", len(remaining))
	}

	_, err = env.blocks.MoveBlockToPage(ctx, "alice", parent.ID, src.ID)
	if !isCode(err, models.ErrorCodeNotFound) {
		t.Errorf("move of already-moved block: err = %v, want not found", err)
	}
}

func TestBlockService_MoveBlockToPageAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	src := env.mustCreatePage(t, "alice", "Inbox")
	dst := env.mustCreatePage(t, "alice", "Projects")
	parent := env.mustCreateBlock(t, "alice", src.ID, "task")

	// Referencing a missing child must fail the whole move: the parent stays
	// on the source page and the destination stays empty.
	if _, err := env.blocks.MoveBlockToPage(ctx, "alice", parent.ID, dst.ID, ksid.NewID()); !isCode(err, models.ErrorCodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	srcBlocks, _ := env.blocks.GetBlocks(ctx, "alice", src.ID)
	dstBlocks, _ := env.blocks.GetBlocks(ctx, "alice", dst.ID)
	if len(srcBlocks) != 1 || len(dstBlocks) != 0 {
		t.Errorf("partial move: src=%d dst=%d, want 1 and 0", len(srcBlocks), len(dstBlocks))
	}
}

func TestPageService_CreatePage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	page := env.mustCreatePage(t, "alice", "Notes")
	if page.Order != 0 {
		t.Errorf("order = %d, want 0", page.Order)
	}
	if _, err := env.pages.CreatePage(ctx, "alice", "", 0, nil); !isCode(err, models.ErrorCodeMissingField) {
		t.Errorf("empty title: err = %v, want missing field", err)
	}
	if _, err := env.pages.CreatePage(ctx, "", "x", 0, nil); !isCode(err, models.ErrorCodeMissingField) {
		t.Errorf("empty user: err = %v, want missing field", err)
	}

	env.config.Quotas.MaxPagesPerUser = 1
	if _, err := env.pages.CreatePage(ctx, "alice", "Over quota", 0, nil); !isCode(err, models.ErrorCodeConflict) {
		t.Errorf("quota: err = %v, want conflict", err)
	}
}

func TestPageService_FixedPages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.pages.SeedFixedPages(ctx, "alice", 0); err != nil {
		t.Fatal(err)
	}
	// Idempotent.
	if err := env.pages.SeedFixedPages(ctx, "alice", 0); err != nil {
		t.Fatal(err)
	}
	pages, err := env.pages.ListPages(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != len(models.FixedPageTitles) {
		t.Fatalf("got %d pages, want %d", len(pages), len(models.FixedPageTitles))
	}
	for i, want := range models.FixedPageTitles {
		if pages[i].Title != want || !pages[i].IsFixed {
			t.Errorf("pages[%d] = %q fixed=%t, want %q fixed", i, pages[i].Title, pages[i].IsFixed, want)
		}
	}

	inbox := pages[0]
	title := "Renamed"
	if _, err := env.pages.UpdatePage(ctx, "alice", inbox.ID, &models.PagePatch{Title: &title}); !isCode(err, models.ErrorCodeConflict) {
		t.Errorf("rename fixed page: err = %v, want conflict", err)
	}
	if _, err := env.pages.DeletePage(ctx, "alice", inbox.ID); !isCode(err, models.ErrorCodeConflict) {
		t.Errorf("delete fixed page: err = %v, want conflict", err)
	}
}

func TestPageService_DeletePageCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page := env.mustCreatePage(t, "alice", "Doomed")
	other := env.mustCreatePage(t, "alice", "Safe")
	for range 3 {
		env.mustCreateBlock(t, "alice", page.ID, "x")
	}
	keep := env.mustCreateBlock(t, "alice", other.ID, "keep")

	deleted, err := env.pages.DeletePage(ctx, "alice", page.ID)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	if _, err := env.pages.GetPage(ctx, "alice", page.ID); !isCode(err, models.ErrorCodeNotFound) {
		t.Errorf("page survived delete: err = %v", err)
	}
	if _, err := env.blocks.GetBlock(ctx, "alice", keep.ID); err != nil {
		t.Errorf("cascade crossed pages: %v", err)
	}
}

func TestWorkspaceService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ws, err := env.workspaces.CreateWorkspace(ctx, "alice", "Personal", "")
	if err != nil {
		t.Fatal(err)
	}
	if ws.Mode != models.WorkspaceModeGTD {
		t.Errorf("mode = %q, want gtd default", ws.Mode)
	}
	// Creating a workspace seeds the fixed GTD pages for it.
	pages, _ := env.pages.ListPages(ctx, "alice")
	if len(pages) != len(models.FixedPageTitles) {
		t.Errorf("got %d seeded pages, want %d", len(pages), len(models.FixedPageTitles))
	}

	if _, err := env.workspaces.CreateWorkspace(ctx, "alice", "Old", models.WorkspaceModeNotes); !isCode(err, models.ErrorCodeValidationFailed) {
		t.Errorf("notes mode creation: err = %v, want validation error", err)
	}

	renamed, err := env.workspaces.RenameWorkspace(ctx, "alice", ws.ID, "Work")
	if err != nil {
		t.Fatal(err)
	}
	if renamed.Name != "Work" {
		t.Errorf("name = %q", renamed.Name)
	}

	if err := env.workspaces.DeleteWorkspace(ctx, "alice", ws.ID); !isCode(err, models.ErrorCodeConflict) {
		t.Errorf("delete workspace owning fixed pages: err = %v, want conflict", err)
	}
}

func TestTaskService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page := env.mustCreatePage(t, "alice", "Tasks")

	todo, err := env.blocks.CreateBlock(ctx, "alice", page.ID, BlockFields{Type: models.BlockTypeTodo, Content: "ship it"})
	if err != nil {
		t.Fatal(err)
	}
	para := env.mustCreateBlock(t, "alice", page.ID, "just text")

	if _, err := env.tasks.PatchTaskMeta(ctx, "alice", para.ID, &models.TaskPatch{}); !isCode(err, models.ErrorCodeValidationFailed) {
		t.Errorf("patch on paragraph: err = %v, want validation error", err)
	}
	if _, err := env.tasks.CompleteTask(ctx, "alice", para.ID); !isCode(err, models.ErrorCodeValidationFailed) {
		t.Errorf("complete on paragraph: err = %v, want validation error", err)
	}
	if _, err := env.tasks.PatchTaskMeta(ctx, "alice", ksid.NewID(), &models.TaskPatch{}); !isCode(err, models.ErrorCodeNotFound) {
		t.Errorf("patch on missing block: err = %v, want not found", err)
	}

	value, effort := 8, 2
	patched, err := env.tasks.PatchTaskMeta(ctx, "alice", todo.ID, &models.TaskPatch{Value: &value, Effort: &effort})
	if err != nil {
		t.Fatal(err)
	}
	if patched.Task == nil || patched.Task.Status != models.TaskStatusNext {
		t.Fatalf("first patch did not initialize metadata: %+v", patched.Task)
	}
	if roi := patched.Task.ROI(); roi != 4 {
		t.Errorf("ROI = %v, want 4", roi)
	}

	done, err := env.tasks.CompleteTask(ctx, "alice", todo.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Task.Status != models.TaskStatusDone || !done.IsChecked {
		t.Errorf("complete: status=%q checked=%t", done.Task.Status, done.IsChecked)
	}
	reopened, err := env.tasks.ReopenTask(ctx, "alice", todo.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Task.Status != models.TaskStatusNext || reopened.IsChecked {
		t.Errorf("reopen: status=%q checked=%t", reopened.Task.Status, reopened.IsChecked)
	}
}

func TestTaskService_ListByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page := env.mustCreatePage(t, "alice", "Tasks")

	mk := func(content string, value, effort int) ksid.ID {
		t.Helper()
		b, err := env.blocks.CreateBlock(ctx, "alice", page.ID, BlockFields{
			Type:    models.BlockTypeTodo,
			Content: content,
			Task:    &models.TaskMeta{Status: models.TaskStatusNext, Value: value, Effort: effort},
		})
		if err != nil {
			t.Fatal(err)
		}
		return b.ID
	}
	mk("low", 2, 8)  // ROI 0.25
	mk("high", 9, 1) // ROI 9
	mk("unscored", 0, 0)
	mk("mid", 5, 5) // ROI 1

	got, err := env.tasks.ListByStatus(ctx, "alice", models.TaskStatusNext)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"high", "mid", "low", "unscored"}
	if len(got) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Content != w {
			t.Errorf("tasks[%d] = %q, want %q", i, got[i].Content, w)
		}
	}

	if _, err := env.tasks.ListByStatus(ctx, "alice", "bogus"); !isCode(err, models.ErrorCodeValidationFailed) {
		t.Errorf("bogus status: err = %v, want validation error", err)
	}
}

func TestAdminService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page := env.mustCreatePage(t, "alice", "Notes")
	env.mustCreateBlock(t, "alice", page.ID, "a")
	b := env.mustCreateBlock(t, "alice", page.ID, "b")
	if err := env.blocks.ArchiveBlock(ctx, "alice", b.ID); err != nil {
		t.Fatal(err)
	}
	env.mustCreatePage(t, "bob", "Bob's page")

	stats, err := env.admin.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("got stats for %d users, want 2", len(stats))
	}
	if stats[0].UserID != "alice" || stats[0].Pages != 1 || stats[0].Blocks != 1 || stats[0].Archived != 1 {
		t.Errorf("alice stats = %+v", stats[0])
	}

	res, err := env.admin.WipeUser(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	// One page, one live block, one archived block.
	if res.Deleted != 3 {
		t.Errorf("deleted = %d, want 3", res.Deleted)
	}
	if _, err := os.Stat(filepath.Join(env.store.Root(), "alice")); !os.IsNotExist(err) {
		t.Error("alice's directory survived the wipe")
	}
	stats, _ = env.admin.Stats(ctx)
	if len(stats) != 1 || stats[0].UserID != "bob" {
		t.Errorf("post-wipe stats = %+v", stats)
	}
}
