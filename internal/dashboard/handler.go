package dashboard

import (
	"context"
	"log"

	"github.com/haven-app/haven/internal/haven"
	"github.com/haven-app/haven/internal/status"
)

// Handler turns core events and status changes into dashboard messages.
type Handler struct {
	server *Server
	source Source
	logger *log.Logger

	// GroceryDays is the window pushed in grocery_update messages; 0 is the
	// core's default.
	GroceryDays int
}

// NewHandler creates a handler broadcasting through server.
func NewHandler(server *Server, source Source, logger *log.Logger) *Handler {
	if logger == nil {
		logger = newLogger()
	}
	return &Handler{server: server, source: source, logger: logger}
}

// Run forwards until ctx is done or both channels are closed.
func (h *Handler) Run(ctx context.Context, events <-chan haven.Event, changes <-chan status.Change) {
	for events != nil || changes != nil {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			h.OnEvent(ev)

		case ch, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			h.OnStatusChange(ch)
		}
	}
}

// OnStatusChange broadcasts a sync_status message.
func (h *Handler) OnStatusChange(ch status.Change) {
	h.logger.Printf("Sync status: %s -> %s", ch.From, ch.To)
	h.server.BroadcastData(MessageTypeSyncStatus, SyncStatusData{
		State: ch.To,
		Error: ch.Err,
		Since: ch.At,
	})
}

// OnEvent broadcasts plan_update for plan and recipe changes and a fresh
// grocery_update whenever the list could have changed.
func (h *Handler) OnEvent(ev haven.Event) {
	switch ev.Kind {
	case haven.EventRemoteChanged:
		// status changes arrive through OnStatusChange
	case haven.EventWaterChanged:
		h.server.BroadcastData(MessageTypePlanUpdate, planUpdate(ev))
	case haven.EventGroceryChecked:
		h.BroadcastGrocery()
	default:
		h.server.BroadcastData(MessageTypePlanUpdate, planUpdate(ev))
		h.BroadcastGrocery()
	}
}

func planUpdate(ev haven.Event) PlanUpdateData {
	return PlanUpdateData{Kind: string(ev.Kind), ID: ev.ID, Date: ev.Date}
}

// BroadcastGrocery recomputes the list and broadcasts it.
func (h *Handler) BroadcastGrocery() {
	list, err := h.source.GroceryList(h.GroceryDays)
	if err != nil {
		h.logger.Printf("Failed to compute grocery list: %v", err)
		return
	}
	h.server.BroadcastData(MessageTypeGroceryUpdate, list)
}
