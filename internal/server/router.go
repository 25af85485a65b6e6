// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/notelite/notelite/internal/server/handlers"
	"github.com/notelite/notelite/internal/storage"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// NewRouter creates and configures the HTTP router. All endpoints live
// under /api; capture and admin routes additionally require their
// configured x-api-key.
func NewRouter(store *storage.Store, config *storage.Config) http.Handler {
	mux := &http.ServeMux{}

	pageService := storage.NewPageService(store, config)
	blockService := storage.NewBlockService(store, config)
	workspaceService := storage.NewWorkspaceService(store, pageService)
	taskService := storage.NewTaskService(store)
	adminService := storage.NewAdminService(store)

	bh := handlers.NewBlockHandler(blockService)
	ph := handlers.NewPageHandler(pageService)
	wh := handlers.NewWorkspaceHandler(workspaceService)
	th := handlers.NewTaskHandler(taskService)
	ch := handlers.NewCaptureHandler(blockService, pageService)
	ah := handlers.NewAdminHandler(adminService)
	watchh := handlers.NewWatchHandler(blockService, config)

	// Health check
	hh := handlers.NewHealthHandler(Version)
	mux.Handle("/api/health", Wrap(hh.Health))

	// Workspace endpoints
	mux.Handle("GET /api/users/{userID}/workspaces", Wrap(wh.ListWorkspaces))
	mux.Handle("POST /api/users/{userID}/workspaces", Wrap(wh.CreateWorkspace))
	mux.Handle("DELETE /api/users/{userID}/workspaces/{wsID}", Wrap(wh.DeleteWorkspace))

	// Page endpoints
	mux.Handle("GET /api/users/{userID}/pages", Wrap(ph.ListPages))
	mux.Handle("POST /api/users/{userID}/pages", Wrap(ph.CreatePage))
	mux.Handle("PUT /api/users/{userID}/pages/{pageID}", Wrap(ph.UpdatePage))
	mux.Handle("DELETE /api/users/{userID}/pages/{pageID}", Wrap(ph.DeletePage))

	// Block endpoints
	mux.Handle("GET /api/users/{userID}/pages/{pageID}/blocks", Wrap(bh.ListBlocks))
	mux.Handle("POST /api/users/{userID}/pages/{pageID}/blocks", Wrap(bh.CreateBlock))
	mux.Handle("POST /api/users/{userID}/pages/{pageID}/blocks/reorder", Wrap(bh.ReorderBlocks))
	mux.Handle("PUT /api/users/{userID}/blocks/{blockID}", Wrap(bh.UpdateBlock))
	mux.Handle("DELETE /api/users/{userID}/blocks/{blockID}", Wrap(bh.DeleteBlock))
	mux.Handle("POST /api/users/{userID}/blocks/{blockID}/archive", Wrap(bh.ArchiveBlock))
	mux.Handle("POST /api/users/{userID}/blocks/move", Wrap(bh.MoveBlock))

	// Recycle bin endpoints
	mux.Handle("GET /api/users/{userID}/archive", Wrap(bh.ListArchive))
	mux.Handle("POST /api/users/{userID}/archive/{blockID}/restore", Wrap(bh.RestoreBlock))

	// Task endpoints
	mux.Handle("GET /api/users/{userID}/tasks", Wrap(th.ListTasks))
	mux.Handle("PUT /api/users/{userID}/blocks/{blockID}/task", Wrap(th.PatchTask))

	// Live page watch
	mux.HandleFunc("GET /api/users/{userID}/pages/{pageID}/watch", watchh.Watch)

	// Quick capture (external clients, API key guarded)
	captureKey := RequireKey(config.APIKeys.Capture)
	mux.Handle("POST /api/capture", captureKey(Wrap(ch.Capture)))

	// Admin endpoints (API key guarded)
	adminKey := RequireKey(config.APIKeys.Admin)
	mux.Handle("GET /api/admin/stats", adminKey(Wrap(ah.Stats)))
	mux.Handle("DELETE /api/admin/users/{userID}", adminKey(Wrap(ah.WipeUser)))

	limited := RateLimit(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst)
	return Logging(limited(mux))
}
