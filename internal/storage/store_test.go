package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/notelite/notelite/internal/models"
)

func TestStore_UserValidation(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		userID string
		code   models.ErrorCode
	}{
		{"", models.ErrorCodeMissingField},
		{"..", models.ErrorCodeValidationFailed},
		{"a/b", models.ErrorCodeValidationFailed},
		{"a\\b", models.ErrorCodeValidationFailed},
		{".hidden", models.ErrorCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			if _, err := store.User(tt.userID); !isCode(err, tt.code) {
				t.Errorf("User(%q): err = %v, want code %s", tt.userID, err, tt.code)
			}
		})
	}
	if _, err := store.User("alice"); err != nil {
		t.Errorf("valid user rejected: %v", err)
	}
}

func TestStore_UsersListsOpenAndOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.User("bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.User("alice"); err != nil {
		t.Fatal(err)
	}
	users, err := store.Users()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0] != "alice" || users[1] != "bob" {
		t.Errorf("users = %v, want [alice bob]", users)
	}
}

func TestStore_ReloadPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	config := DefaultConfig()
	pages := NewPageService(store, config)
	if _, err := pages.CreatePage(context.Background(), "alice", "Notes", 0, nil); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "users", "alice", "pages.jsonl")

	// The table just wrote its own file, so the event is treated as an echo
	// and matched without a reload.
	matched, err := store.ReloadPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Error("open table's file did not match")
	}

	// Unknown files and users never match.
	if matched, _ := store.ReloadPath(filepath.Join(dir, "users", "alice", "other.jsonl")); matched {
		t.Error("unknown basename matched")
	}
	if matched, _ := store.ReloadPath(filepath.Join(dir, "users", "nobody", "pages.jsonl")); matched {
		t.Error("unopened user matched")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	config, err := LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if config.APIKeys.Capture == "" || config.APIKeys.Admin == "" {
		t.Error("generated config is missing API keys")
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config file not written: %v", err)
	}

	// A second load returns the persisted values, not fresh ones.
	again, err := LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if again.APIKeys.Capture != config.APIKeys.Capture {
		t.Error("reload generated new API keys")
	}
	if again.Debounce() != config.Debounce() {
		t.Errorf("debounce = %v, want %v", again.Debounce(), config.Debounce())
	}
}
