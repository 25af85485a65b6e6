package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/maruel/ksid"
	"github.com/notelite/notelite/internal/editor"
	"github.com/notelite/notelite/internal/models"
	"github.com/notelite/notelite/internal/server/dto"
	"github.com/notelite/notelite/internal/storage"
)

// WatchHandler runs page edit sessions over WebSockets. Outbound, every
// change to the page delivers the full ordered block set, never a diff; a
// slow client skips intermediate states and gets the latest. Inbound, the
// client streams keystrokes and drag gestures through a per-connection edit
// buffer and drag controller, so saves are debounced and hover updates
// throttled at the intervals the server is configured with.
type WatchHandler struct {
	blocks *storage.BlockService
	config *storage.Config

	upgrader websocket.Upgrader
}

// NewWatchHandler creates a new watch handler.
func NewWatchHandler(blocks *storage.BlockService, config *storage.Config) *WatchHandler {
	return &WatchHandler{
		blocks: blocks,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local-first single-operator server; the API has no cookie or
			// session auth for cross-origin requests to ride on.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Watch upgrades the connection, streams snapshots and applies client edit
// messages until either side disconnects.
func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("userID")
	pageID, err := ksid.Parse(r.PathValue("pageID"))
	if err != nil {
		http.Error(w, "invalid page ID", http.StatusBadRequest)
		return
	}

	sub, err := h.blocks.SubscribeToBlocks(ctx, userID, pageID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer sub.Cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(ctx, "WebSocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	save := func(ctx context.Context, blockID ksid.ID, content string) error {
		_, err := h.blocks.UpdateBlock(ctx, userID, blockID, &models.BlockPatch{Content: &content})
		return err
	}
	buffer := editor.NewEditBuffer(save, h.config.Debounce())
	drag := editor.NewDragController(h.blocks, h.config.DragThrottle())
	// Edits the debounce window is still holding get saved when the client
	// goes away. The request context is canceled by then.
	defer func() {
		if err := buffer.Close(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "Failed to flush edit buffer", "err", err)
		}
	}()

	// Reader goroutine: client edit messages, plus how gorilla surfaces
	// close frames. Only the main loop writes to the connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg dto.SessionMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			h.handleMessage(ctx, userID, pageID, buffer, drag, &msg)
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C():
			if !ok {
				return
			}
			// Dirty local edits win over the snapshot.
			snap = buffer.Merge(snap)
			if err := conn.WriteJSON(dto.ListBlocksResponse{Blocks: blocksToResponse(snap)}); err != nil {
				slog.DebugContext(ctx, "WebSocket write failed", "err", err)
				return
			}
		}
	}
}

func (h *WatchHandler) handleMessage(ctx context.Context, userID string, pageID ksid.ID, buffer *editor.EditBuffer, drag *editor.DragController, msg *dto.SessionMessage) {
	switch msg.Type {
	case "edit":
		if msg.BlockID.IsZero() {
			return
		}
		buffer.SetContent(ctx, msg.BlockID, msg.Content)
	case "flush":
		if err := buffer.Flush(ctx); err != nil {
			slog.WarnContext(ctx, "Failed to flush edit buffer", "err", err)
		}
	case "drag_start":
		if msg.BlockID.IsZero() {
			return
		}
		drag.Start(userID, msg.BlockID, pageID, msg.Children...)
	case "drag_hover":
		targetPage := msg.PageID
		if targetPage.IsZero() {
			targetPage = pageID
		}
		drag.Hover(msg.TargetID, targetPage, msg.PointerY, msg.TargetMidY)
	case "drag_drop":
		if _, err := drag.Drop(ctx); err != nil {
			slog.WarnContext(ctx, "Drop failed", "user", userID, "err", err)
		}
	case "drag_cancel":
		drag.Cancel()
	default:
		slog.DebugContext(ctx, "Unknown edit session message", "type", msg.Type)
	}
}
