package editor

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/models"
)

func TestMain(m *testing.M) {
	if err := ksid.InitIDSlice(0, 1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// recordingSaver counts saves and can be told to fail.
type recordingSaver struct {
	mu    sync.Mutex
	saves []string
	fail  bool
}

func (r *recordingSaver) save(ctx context.Context, blockID ksid.ID, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("storage unavailable")
	}
	r.saves = append(r.saves, content)
	return nil
}

func (r *recordingSaver) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *recordingSaver) saved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.saves...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestEditBuffer_DebouncedSave(t *testing.T) {
	saver := &recordingSaver{}
	buf := NewEditBuffer(saver.save, 20*time.Millisecond)
	ctx := context.Background()
	id := ksid.NewID()

	// A burst of keystrokes within the window collapses to one save of the
	// final content.
	buf.SetContent(ctx, id, "h")
	buf.SetContent(ctx, id, "he")
	buf.SetContent(ctx, id, "hel")
	buf.SetContent(ctx, id, "hello")
	if !buf.IsDirty(id) {
		t.Fatal("block not dirty after keystroke")
	}

	waitFor(t, 2*time.Second, func() bool { return !buf.IsDirty(id) })
	got := saver.saved()
	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("saves = %v, want one save of %q", got, "hello")
	}
}

func TestEditBuffer_FailedSaveStaysDirty(t *testing.T) {
	saver := &recordingSaver{}
	saver.setFail(true)
	buf := NewEditBuffer(saver.save, 10*time.Millisecond)
	ctx := context.Background()
	id := ksid.NewID()

	buf.SetContent(ctx, id, "important")
	// Give the debounce timer time to fire and fail.
	time.Sleep(100 * time.Millisecond)
	if !buf.IsDirty(id) {
		t.Fatal("failed save cleared the dirty flag")
	}
	if len(saver.saved()) != 0 {
		t.Fatal("save recorded despite failure")
	}

	// The edit survives: once the backend recovers, Flush writes it.
	saver.setFail(false)
	if err := buf.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if buf.IsDirty(id) {
		t.Error("block still dirty after successful flush")
	}
	got := saver.saved()
	if len(got) != 1 || got[0] != "important" {
		t.Errorf("saves = %v, want [important]", got)
	}
}

func TestEditBuffer_Merge(t *testing.T) {
	saver := &recordingSaver{}
	// Long interval so the block stays dirty for the whole test.
	buf := NewEditBuffer(saver.save, time.Hour)
	ctx := context.Background()

	dirty := &models.Block{ID: ksid.NewID(), Content: "remote stale"}
	clean := &models.Block{ID: ksid.NewID(), Content: "remote fresh"}
	buf.SetContent(ctx, dirty.ID, "local edit")

	merged := buf.Merge([]*models.Block{dirty, clean})
	if merged[0].Content != "local edit" {
		t.Errorf("dirty block content = %q, want local edit kept", merged[0].Content)
	}
	if merged[1].Content != "remote fresh" {
		t.Errorf("clean block content = %q, want remote value", merged[1].Content)
	}
	// The caller's snapshot is untouched.
	if dirty.Content != "remote stale" {
		t.Error("Merge modified the input snapshot")
	}
}

func TestEditBuffer_Close(t *testing.T) {
	saver := &recordingSaver{}
	buf := NewEditBuffer(saver.save, time.Hour)
	ctx := context.Background()
	id := ksid.NewID()

	buf.SetContent(ctx, id, "pending")
	if err := buf.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if got := saver.saved(); len(got) != 1 || got[0] != "pending" {
		t.Errorf("saves = %v, want [pending]", got)
	}

	// Keystrokes after close are dropped.
	buf.SetContent(ctx, id, "too late")
	if buf.IsDirty(id) {
		t.Error("buffer accepted a keystroke after close")
	}
}
