// Package storage implements the per-user persistence services on top of
// the jsonldb table engine.
//
// Layout on disk (unified layout; blocks carry a page_id field instead of
// nesting under per-page sub-collections):
//
//	{root}/users/{userID}/blocks.jsonl
//	{root}/users/{userID}/pages.jsonl
//	{root}/users/{userID}/workspaces.jsonl
//	{root}/users/{userID}/archive.jsonl
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/jsonldb"
	"github.com/notelite/notelite/internal/models"
)

// UserStore holds the open tables for one user. All entities are exclusively
// owned by a single user; there is no cross-user sharing construct.
type UserStore struct {
	userID string
	dir    string

	blocks     *jsonldb.Table[*models.Block]
	pages      *jsonldb.Table[*models.Page]
	workspaces *jsonldb.Table[*models.Workspace]
	archive    *jsonldb.Table[*models.Block]

	blocksByPage *jsonldb.Index[ksid.ID, *models.Block]
}

// UserID returns the owning user's identifier.
func (u *UserStore) UserID() string {
	return u.userID
}

// Blocks returns the live blocks table.
func (u *UserStore) Blocks() *jsonldb.Table[*models.Block] {
	return u.blocks
}

// Pages returns the pages table.
func (u *UserStore) Pages() *jsonldb.Table[*models.Page] {
	return u.pages
}

// Workspaces returns the workspaces table.
func (u *UserStore) Workspaces() *jsonldb.Table[*models.Workspace] {
	return u.workspaces
}

// Archive returns the archived-blocks table (recycle bin).
func (u *UserStore) Archive() *jsonldb.Table[*models.Block] {
	return u.archive
}

func openUserStore(dir, userID string) (*UserStore, error) {
	u := &UserStore{userID: userID, dir: dir}
	var err error
	if u.blocks, err = jsonldb.NewTable[*models.Block](filepath.Join(dir, "blocks.jsonl")); err != nil {
		return nil, err
	}
	if u.pages, err = jsonldb.NewTable[*models.Page](filepath.Join(dir, "pages.jsonl")); err != nil {
		return nil, err
	}
	if u.workspaces, err = jsonldb.NewTable[*models.Workspace](filepath.Join(dir, "workspaces.jsonl")); err != nil {
		return nil, err
	}
	if u.archive, err = jsonldb.NewTable[*models.Block](filepath.Join(dir, "archive.jsonl")); err != nil {
		return nil, err
	}
	u.blocksByPage = jsonldb.NewIndex(u.blocks, func(b *models.Block) ksid.ID { return b.PageID })
	return u, nil
}

// Store manages the UserStore set under one data directory. It is
// constructed once by the process entry point and injected into every
// service; there is no package-level singleton.
type Store struct {
	root string

	mu    sync.Mutex
	users map[string]*UserStore
}

// NewStore creates a store rooted at dataDir.
func NewStore(dataDir string) (*Store, error) {
	root := filepath.Join(dataDir, "users")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create users directory: %w", err)
	}
	return &Store{
		root:  root,
		users: map[string]*UserStore{},
	}, nil
}

// Root returns the users directory path.
func (s *Store) Root() string {
	return s.root
}

// validateUserID rejects empty IDs and IDs that would escape the users
// directory.
func validateUserID(userID string) error {
	if userID == "" {
		return models.MissingField("userId")
	}
	if strings.ContainsAny(userID, "/\\") || strings.HasPrefix(userID, ".") {
		return models.BadRequest(fmt.Sprintf("invalid user id %q", userID))
	}
	return nil
}

// User returns the table set for the given user, opening it on first use.
func (s *Store) User(userID string) (*UserStore, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	u, err := openUserStore(filepath.Join(s.root, userID), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to open store for user %s: %w", userID, err)
	}
	s.users[userID] = u
	return u, nil
}

// Users returns the IDs of all users with data on disk, sorted.
func (s *Store) Users() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read users directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Forget drops the in-memory handle for a user. Used after a data wipe so a
// later access reopens from (now empty) disk state.
func (s *Store) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}

// ReloadPath reloads the table backed by the given file, if it is open.
// Called by the directory watcher when a JSONL file changes on disk outside
// of this process. Returns false when no open table matches.
func (s *Store) ReloadPath(path string) (bool, error) {
	s.mu.Lock()
	var match *UserStore
	for _, u := range s.users {
		if u.dir == filepath.Dir(path) {
			match = u
			break
		}
	}
	s.mu.Unlock()
	if match == nil {
		return false, nil
	}

	switch filepath.Base(path) {
	case "blocks.jsonl":
		return true, reloadIfExternal(match.blocks)
	case "pages.jsonl":
		return true, reloadIfExternal(match.pages)
	case "workspaces.jsonl":
		return true, reloadIfExternal(match.workspaces)
	case "archive.jsonl":
		return true, reloadIfExternal(match.archive)
	}
	return false, nil
}

// reloadIfExternal reloads the table unless this process wrote its file
// moments ago, which means the filesystem event is an echo of our own write
// rather than an external edit.
func reloadIfExternal[T jsonldb.Row[T]](table *jsonldb.Table[T]) error {
	if table.WroteSince(time.Now().Add(-2 * time.Second)) {
		return nil
	}
	return table.Reload()
}
