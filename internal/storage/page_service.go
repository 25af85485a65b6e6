package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/jsonldb"
	"github.com/notelite/notelite/internal/models"
)

// PageService handles page business logic: listing, creation, renames,
// cascading deletes and seeding of the fixed GTD pages.
type PageService struct {
	store  *Store
	config *Config
}

// NewPageService creates a new page service.
func NewPageService(store *Store, config *Config) *PageService {
	return &PageService{store: store, config: config}
}

// ListPages returns the user's pages in display order.
func (s *PageService) ListPages(ctx context.Context, userID string) ([]*models.Page, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	pages := u.pages.Snapshot()
	slices.SortFunc(pages, models.ComparePages)
	return pages, nil
}

// GetPage returns a page by ID.
func (s *PageService) GetPage(ctx context.Context, userID string, pageID ksid.ID) (*models.Page, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	page := u.pages.Get(pageID)
	if page == nil {
		return nil, models.NotFound("page")
	}
	return page, nil
}

// FindPageByTitle returns the user's page with the given title, or a
// not-found error. Titles are not unique; the first page in display order
// wins.
func (s *PageService) FindPageByTitle(ctx context.Context, userID, title string) (*models.Page, error) {
	pages, err := s.ListPages(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		if p.Title == title {
			return p, nil
		}
	}
	return nil, models.NotFound("page")
}

// CreatePage creates a page at the end of the list.
func (s *PageService) CreatePage(ctx context.Context, userID, title string, workspaceID ksid.ID, tags []string) (*models.Page, error) {
	if title == "" {
		return nil, models.MissingField("title")
	}
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	if q := s.config.Quotas.MaxPagesPerUser; q > 0 && u.pages.Len() >= q {
		return nil, models.Conflict(fmt.Sprintf("page quota exceeded (%d/%d)", u.pages.Len(), q))
	}
	if !workspaceID.IsZero() && u.workspaces.Get(workspaceID) == nil {
		return nil, models.NotFound("workspace")
	}

	now := time.Now()
	page := &models.Page{
		ID:          ksid.NewID(),
		WorkspaceID: workspaceID,
		Title:       title,
		Order:       int64(u.pages.Len()),
		Tags:        tags,
		Created:     now,
		Modified:    now,
	}
	if err := u.pages.Append(page); err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

// UpdatePage applies a partial update. Fixed GTD pages cannot be renamed.
func (s *PageService) UpdatePage(ctx context.Context, userID string, pageID ksid.ID, patch *models.PagePatch) (*models.Page, error) {
	if err := patch.Validate(); err != nil {
		return nil, models.BadRequest(err.Error())
	}
	u, err := s.store.User(userID)
	if err != nil {
		return nil, err
	}
	page, err := u.pages.Modify(pageID, func(p *models.Page) error {
		if p.IsFixed && patch.Title != nil && *patch.Title != p.Title {
			return models.Conflict(fmt.Sprintf("page %q is fixed and cannot be renamed", p.Title))
		}
		patch.Apply(p)
		p.Modified = time.Now()
		return nil
	})
	if err != nil {
		if u.pages.Get(pageID) == nil {
			return nil, models.NotFound("page")
		}
		var apiErr *models.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("failed to update page: %w", err)
	}
	return page, nil
}

// DeletePage deletes a page and all its blocks. The block cascade is
// batched; the page document is removed only after every block batch
// succeeded, so a failed cascade leaves the page visible with its surviving
// blocks. Returns the number of blocks removed.
func (s *PageService) DeletePage(ctx context.Context, userID string, pageID ksid.ID) (int, error) {
	u, err := s.store.User(userID)
	if err != nil {
		return 0, err
	}
	page := u.pages.Get(pageID)
	if page == nil {
		return 0, models.NotFound("page")
	}
	if page.IsFixed {
		return 0, models.Conflict(fmt.Sprintf("page %q is fixed and cannot be deleted", page.Title))
	}

	blocks := u.blocksByPage.Get(pageID)
	deleted := 0
	err = jsonldb.Chunk(len(blocks), func(start, end int) error {
		batch := u.blocks.NewBatch()
		for _, b := range blocks[start:end] {
			batch.Delete(b.ID)
		}
		if err := batch.Commit(); err != nil {
			return err
		}
		deleted += end - start
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("failed to delete page blocks: %w", err)
	}
	if err := u.pages.Delete(pageID); err != nil {
		return deleted, fmt.Errorf("failed to delete page: %w", err)
	}
	slog.InfoContext(ctx, "Deleted page", "user", userID, "page", pageID, "blocks", deleted)
	return deleted, nil
}

// SeedFixedPages ensures the fixed GTD pages exist for the user, creating
// the missing ones at the front of the page list. Idempotent: pages already
// present are left untouched.
func (s *PageService) SeedFixedPages(ctx context.Context, userID string, workspaceID ksid.ID) error {
	u, err := s.store.User(userID)
	if err != nil {
		return err
	}
	existing := make(map[string]bool)
	for p := range u.pages.All() {
		if p.IsFixed {
			existing[p.Title] = true
		}
	}

	now := time.Now()
	for i, title := range models.FixedPageTitles {
		if existing[title] {
			continue
		}
		page := &models.Page{
			ID:          ksid.NewID(),
			WorkspaceID: workspaceID,
			Title:       title,
			Order:       int64(i),
			IsFixed:     true,
			Created:     now,
			Modified:    now,
		}
		if err := u.pages.Append(page); err != nil {
			return fmt.Errorf("failed to seed page %q: %w", title, err)
		}
	}
	return nil
}
