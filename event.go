package strata

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is a trigger consumed by the dispatch loop. Events are consumed at
// most once; an event posted by an action during dispatch is marked internal
// and drained before Dispatch returns to the caller.
type Event struct {
	Name     string
	Payload  any
	ID       string
	At       time.Time
	internal bool
}

// NewEvent creates a new external event
func NewEvent(name string, payload any) Event {
	return Event{
		Name:    name,
		Payload: payload,
		ID:      uuid.New().String(),
		At:      time.Now(),
	}
}

func newInternalEvent(name string, payload any) Event {
	ev := NewEvent(name, payload)
	ev.internal = true
	return ev
}

// Internal reports whether the event was posted by an action rather than
// dispatched by the caller
func (e Event) Internal() bool {
	return e.internal
}

// Done returns the completion event name for a composite or orthogonal
// state. The dispatch loop posts this event internally when every region of
// the named state has reached a final state.
func Done(state string) string {
	return fmt.Sprintf("done(%s)", state)
}

// Result reports the outcome of processing one external event, including
// everything drained from the internal queue on its behalf.
type Result struct {
	// Handled is false when no transition matched the external event
	Handled bool
	// StateChanged is true when the active configuration differs from the
	// one observed before dispatch; internal transitions leave it false
	StateChanged bool
	// Configuration is the active state set after the dispatch completed
	Configuration []string
}
