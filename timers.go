package strata

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TimerManager schedules delayed events against one machine. Fired events go
// through Dispatch like any external event; a timer firing while the machine
// is busy or stopped is reported to observers through OnError instead of
// being delivered.
//
// Pending timers are cancelled automatically when the machine stops.
type TimerManager struct {
	machine *Machine
	mu      sync.Mutex
	timers  map[string]*time.Timer
}

func newTimerManager(m *Machine) *TimerManager {
	return &TimerManager{
		machine: m,
		timers:  make(map[string]*time.Timer),
	}
}

// After schedules the named event to be dispatched after the given delay and
// returns the timer's id for cancellation
func (tm *TimerManager) After(d time.Duration, event string, payload any) string {
	id := uuid.New().String()
	tm.mu.Lock()
	tm.timers[id] = time.AfterFunc(d, func() {
		tm.fire(id, event, payload)
	})
	tm.mu.Unlock()
	return id
}

// Cancel stops a pending timer. Cancelling an unknown or already-fired timer
// returns a TimerError.
func (tm *TimerManager) Cancel(id string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	t, ok := tm.timers[id]
	if !ok {
		return NewTimerError(id, "timer does not exist or has already fired")
	}
	t.Stop()
	delete(tm.timers, id)
	return nil
}

// Active returns the number of pending timers
func (tm *TimerManager) Active() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.timers)
}

func (tm *TimerManager) fire(id, event string, payload any) {
	tm.mu.Lock()
	delete(tm.timers, id)
	tm.mu.Unlock()
	if _, err := tm.machine.Dispatch(NewEvent(event, payload)); err != nil {
		tm.machine.obs.notifyError(err, tm.machine.ctx)
	}
}

func (tm *TimerManager) stopAll() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	for id, t := range tm.timers {
		t.Stop()
		delete(tm.timers, id)
	}
}
