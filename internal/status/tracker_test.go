package status

import (
	"errors"
	"testing"
	"time"
)

func TestNewTracker_StartsLocked(t *testing.T) {
	tr := NewTracker()
	if got := tr.Current().State; got != StateLocked {
		t.Errorf("initial state = %s, want locked", got)
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateLocked, StateLocalOnly, true},
		{StateLocked, StateSyncing, true},
		{StateLocked, StateSynced, false},
		{StateLocked, StateError, false},
		{StateLocalOnly, StateSyncing, true},
		{StateLocalOnly, StateSynced, false},
		{StateSyncing, StateSynced, true},
		{StateSyncing, StateError, true},
		{StateSynced, StateSyncing, true},
		{StateSynced, StateError, true},
		{StateError, StateSyncing, true},
		{StateError, StateSynced, false},
		{StateSynced, StateLocalOnly, true},
		{StateError, StateLocalOnly, true},
		{StateSynced, StateLocked, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.ok {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
			}
		})
	}
}

func TestTransition_Invalid(t *testing.T) {
	tr := NewTracker()
	err := tr.Synced()
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("locked -> synced error = %v, want ErrInvalidTransition", err)
	}
	if tr.Current().State != StateLocked {
		t.Error("state changed after rejected transition")
	}
}

func TestFailRecordsCause(t *testing.T) {
	tr := NewTracker()
	if err := tr.BeginSync(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Fail(errors.New("remote unreachable")); err != nil {
		t.Fatal(err)
	}
	snap := tr.Current()
	if snap.State != StateError || snap.Err != "remote unreachable" {
		t.Errorf("snapshot = %+v", snap)
	}

	if err := tr.BeginSync(); err != nil {
		t.Fatal(err)
	}
	if tr.Current().Err != "" {
		t.Error("error text should clear when leaving error state")
	}
}

func TestSubscribe(t *testing.T) {
	tr := NewTracker()
	ch := tr.Subscribe()

	if err := tr.BeginSync(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Synced(); err != nil {
		t.Fatal(err)
	}

	want := []State{StateSyncing, StateSynced}
	for _, w := range want {
		select {
		case c := <-ch:
			if c.To != w {
				t.Errorf("change.To = %s, want %s", c.To, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", w)
		}
	}

	// Same-state transitions without a new error are silent.
	if err := tr.LocalOnly(); err != nil {
		t.Fatal(err)
	}
	<-ch
	if err := tr.LocalOnly(); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-ch:
		t.Errorf("unexpected change %+v", c)
	default:
	}

	tr.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Error("channel should be closed after Unsubscribe")
	}
	if err := tr.BeginSync(); err != nil {
		t.Fatal(err)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	tr := NewTracker()
	_ = tr.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tr.BeginSync()
		for i := 0; i < subscriberBuffer*2; i++ {
			_ = tr.Fail(errors.New(time.Duration(i).String()))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Transition blocked on a full subscriber")
	}
}
