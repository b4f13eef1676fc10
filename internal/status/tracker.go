// Package status tracks haven's sync state as an explicit, observable value.
//
// A Tracker is created once per Core and passed to whoever needs to change
// or watch it: the reconcile engine, the write-through mirror, the daemon
// and the dashboard.
package status

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the sync state shown to the user.
type State string

const (
	// StateLocked is the initial state before auth has been established.
	StateLocked State = "locked"
	// StateLocalOnly means no remote is configured.
	StateLocalOnly State = "local-only"
	// StateSyncing means a reconciliation pass is in flight.
	StateSyncing State = "syncing"
	// StateSynced means the last pass succeeded and no mirror has failed since.
	StateSynced State = "synced"
	// StateError means the last pass or a mirrored write failed.
	StateError State = "error"
)

// ErrInvalidTransition is returned when a state change isn't allowed.
var ErrInvalidTransition = errors.New("invalid sync status transition")

var transitions = map[State][]State{
	StateLocked:    {StateLocalOnly, StateSyncing},
	StateLocalOnly: {StateLocalOnly, StateSyncing},
	StateSyncing:   {StateSyncing, StateSynced, StateError, StateLocalOnly},
	StateSynced:    {StateSyncing, StateError, StateLocalOnly},
	StateError:     {StateSyncing, StateError, StateLocalOnly},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Snapshot is a point-in-time view of the tracker.
type Snapshot struct {
	State State     `json:"state"`
	Err   string    `json:"error,omitempty"`
	Since time.Time `json:"since"`
}

// Change is delivered to subscribers on every accepted transition.
type Change struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	Err  string    `json:"error,omitempty"`
	At   time.Time `json:"at"`
}

// subscriberBuffer is the channel capacity per subscriber. Changes that
// don't fit are dropped for that subscriber.
const subscriberBuffer = 16

// Tracker holds the current sync state. Safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	state State
	err   string
	since time.Time
	subs  map[chan Change]struct{}
	now   func() time.Time
}

// NewTracker returns a tracker in StateLocked.
func NewTracker() *Tracker {
	return &Tracker{
		state: StateLocked,
		since: time.Now(),
		subs:  make(map[chan Change]struct{}),
		now:   time.Now,
	}
}

// Current returns the current snapshot.
func (t *Tracker) Current() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{State: t.state, Err: t.err, Since: t.since}
}

// Transition moves to the given state. cause is recorded as the error text
// when moving to StateError and cleared otherwise.
func (t *Tracker) Transition(to State, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	from := t.state
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	errText := ""
	if to == StateError && cause != nil {
		errText = cause.Error()
	}

	// Re-entering the same state only notifies when the error changed.
	if from == to && errText == t.err {
		return nil
	}

	t.state = to
	t.err = errText
	t.since = t.now()

	change := Change{From: from, To: to, Err: errText, At: t.since}
	for ch := range t.subs {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

// LocalOnly records that no remote is configured.
func (t *Tracker) LocalOnly() error { return t.Transition(StateLocalOnly, nil) }

// BeginSync records the start of a reconciliation pass.
func (t *Tracker) BeginSync() error { return t.Transition(StateSyncing, nil) }

// Synced records a successful reconciliation pass.
func (t *Tracker) Synced() error { return t.Transition(StateSynced, nil) }

// Fail records a failed pass or mirrored write.
func (t *Tracker) Fail(cause error) error { return t.Transition(StateError, cause) }

// Subscribe returns a channel receiving every future Change.
func (t *Tracker) Subscribe() <-chan Change {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan Change, subscriberBuffer)
	t.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (t *Tracker) Unsubscribe(ch <-chan Change) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for c := range t.subs {
		if c == ch {
			delete(t.subs, c)
			close(c)
			return
		}
	}
}
