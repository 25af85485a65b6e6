package jsonldb

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/maruel/ksid"
)

func TestMain(m *testing.M) {
	// Initialize ID generation for testing.
	if err := ksid.InitIDSlice(0, 1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// testRow is a simple row type for testing.
type testRow struct {
	ID   ksid.ID `json:"id"`
	Name string  `json:"name"`
}

func (r *testRow) Clone() *testRow {
	c := *r
	return &c
}

func (r *testRow) GetID() ksid.ID {
	return r.ID
}

func (r *testRow) Validate() error {
	if r.Name == "invalid" {
		return errors.New("validation failed")
	}
	return nil
}

// setupTable creates a table in the test's temp directory.
func setupTable(t *testing.T) (*Table[*testRow], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.jsonl")
	table, err := NewTable[*testRow](path)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return table, path
}

func names(rows []*testRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestTable(t *testing.T) {
	t.Run("Append", func(t *testing.T) {
		t.Run("valid", func(t *testing.T) {
			table, path := setupTable(t)
			rows := []*testRow{
				{ID: ksid.NewID(), Name: "a"},
				{ID: ksid.NewID(), Name: "b"},
			}
			for _, r := range rows {
				if err := table.Append(r); err != nil {
					t.Fatalf("Append failed: %v", err)
				}
			}
			if table.Len() != 2 {
				t.Errorf("Len() = %d, want 2", table.Len())
			}

			// Appended data must survive a reload from disk.
			reloaded, err := NewTable[*testRow](path)
			if err != nil {
				t.Fatalf("NewTable reload failed: %v", err)
			}
			if got := names(reloaded.Snapshot()); !slices.Equal(got, []string{"a", "b"}) {
				t.Errorf("reloaded rows = %v, want [a b]", got)
			}
		})

		t.Run("duplicate ID rejected", func(t *testing.T) {
			table, _ := setupTable(t)
			row := &testRow{ID: ksid.NewID(), Name: "a"}
			if err := table.Append(row); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			if err := table.Append(row.Clone()); err == nil {
				t.Error("Append with duplicate ID succeeded, want error")
			}
		})

		t.Run("validation failure rejected", func(t *testing.T) {
			table, _ := setupTable(t)
			if err := table.Append(&testRow{ID: ksid.NewID(), Name: "invalid"}); err == nil {
				t.Error("Append with invalid row succeeded, want error")
			}
			if table.Len() != 0 {
				t.Errorf("Len() = %d after rejected append, want 0", table.Len())
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		table, _ := setupTable(t)
		row := &testRow{ID: ksid.NewID(), Name: "a"}
		if err := table.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		got := table.Get(row.ID)
		if got == nil || got.Name != "a" {
			t.Fatalf("Get(%s) = %+v, want name a", row.ID, got)
		}
		// Clones must not alias table state.
		got.Name = "mutated"
		if table.Get(row.ID).Name != "a" {
			t.Error("mutating a Get result changed table state")
		}

		if missing := table.Get(ksid.NewID()); missing != nil {
			t.Errorf("Get(unknown) = %+v, want nil", missing)
		}
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("existing row", func(t *testing.T) {
			table, path := setupTable(t)
			row := &testRow{ID: ksid.NewID(), Name: "a"}
			if err := table.Append(row); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			row.Name = "b"
			if err := table.Update(row); err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			if got := table.Get(row.ID).Name; got != "b" {
				t.Errorf("Get after update = %q, want b", got)
			}

			reloaded, err := NewTable[*testRow](path)
			if err != nil {
				t.Fatalf("NewTable reload failed: %v", err)
			}
			if got := reloaded.Get(row.ID).Name; got != "b" {
				t.Errorf("reloaded row = %q, want b", got)
			}
		})

		t.Run("missing row", func(t *testing.T) {
			table, _ := setupTable(t)
			if err := table.Update(&testRow{ID: ksid.NewID(), Name: "a"}); err == nil {
				t.Error("Update of missing row succeeded, want error")
			}
		})
	})

	t.Run("Modify", func(t *testing.T) {
		t.Run("applies mutation under lock", func(t *testing.T) {
			table, _ := setupTable(t)
			row := &testRow{ID: ksid.NewID(), Name: "a"}
			if err := table.Append(row); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			got, err := table.Modify(row.ID, func(r *testRow) error {
				r.Name = "b"
				return nil
			})
			if err != nil {
				t.Fatalf("Modify failed: %v", err)
			}
			if got.Name != "b" {
				t.Errorf("Modify returned %q, want b", got.Name)
			}
		})

		t.Run("fn error aborts", func(t *testing.T) {
			table, _ := setupTable(t)
			row := &testRow{ID: ksid.NewID(), Name: "a"}
			if err := table.Append(row); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			wantErr := errors.New("nope")
			if _, err := table.Modify(row.ID, func(r *testRow) error {
				r.Name = "b"
				return wantErr
			}); !errors.Is(err, wantErr) {
				t.Fatalf("Modify error = %v, want %v", err, wantErr)
			}
			if got := table.Get(row.ID).Name; got != "a" {
				t.Errorf("row after aborted Modify = %q, want a", got)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		table, _ := setupTable(t)
		row := &testRow{ID: ksid.NewID(), Name: "a"}
		if err := table.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := table.Delete(row.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if table.Len() != 0 {
			t.Errorf("Len() after delete = %d, want 0", table.Len())
		}
		if err := table.Delete(row.ID); err == nil {
			t.Error("second Delete succeeded, want error")
		}
	})

	t.Run("load sorts out-of-order files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.jsonl")
		id1 := ksid.NewID()
		id2 := ksid.NewID()
		// Write rows in reverse ID order, as a manual edit might.
		content := `{"id":"` + id2.String() + `","name":"b"}` + "\n" +
			`{"id":"` + id1.String() + `","name":"a"}` + "\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		table, err := NewTable[*testRow](path)
		if err != nil {
			t.Fatalf("NewTable failed: %v", err)
		}
		if got := names(table.Snapshot()); !slices.Equal(got, []string{"a", "b"}) {
			t.Errorf("rows = %v, want [a b]", got)
		}
	})

	t.Run("Reload picks up external changes", func(t *testing.T) {
		table, path := setupTable(t)
		id := ksid.NewID()
		content := `{"id":"` + id.String() + `","name":"external"}` + "\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := table.Reload(); err != nil {
			t.Fatalf("Reload failed: %v", err)
		}
		if got := table.Get(id); got == nil || got.Name != "external" {
			t.Errorf("Get after reload = %+v, want external row", got)
		}
		// The table must still accept writes after a reload.
		if err := table.Append(&testRow{ID: ksid.NewID(), Name: "after"}); err != nil {
			t.Fatalf("Append after reload failed: %v", err)
		}
		if table.Len() != 2 {
			t.Errorf("Len after reload+append = %d, want 2", table.Len())
		}
	})
}
