package haven

import (
	"sync"
)

// EventKind names what changed.
type EventKind string

const (
	EventRecipeSaved    EventKind = "recipe_saved"
	EventRecipeDeleted  EventKind = "recipe_deleted"
	EventPlanChanged    EventKind = "plan_changed"
	EventWaterChanged   EventKind = "water_changed"
	EventGroceryChecked EventKind = "grocery_checked"
	EventReconciled     EventKind = "reconciled"
	EventRemoteChanged  EventKind = "remote_changed"
)

// Event is published after a change has been applied.
type Event struct {
	Kind EventKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
	Date string    `json:"date,omitempty"`
}

const eventBuffer = 64

type eventHub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func (h *eventHub) subscribe() <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[chan Event]struct{})
	}
	ch := make(chan Event, eventBuffer)
	h.subs[ch] = struct{}{}
	return ch
}

func (h *eventHub) unsubscribe(ch <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs {
		if c == ch {
			delete(h.subs, c)
			close(c)
			return
		}
	}
}

// emit never blocks; slow subscribers miss events.
func (h *eventHub) emit(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel receiving every future Event.
func (c *Core) Subscribe() <-chan Event { return c.events.subscribe() }

// Unsubscribe stops delivery to ch and closes it.
func (c *Core) Unsubscribe(ch <-chan Event) { c.events.unsubscribe(ch) }
