package strata

import (
	"context"
	"sync"
)

// Context carries the current event and the machine's extended state into
// guards, actions and observers. It embeds context.Context so callbacks can
// honor cancellation from the surrounding application.
type Context interface {
	context.Context

	// Machine returns the machine processing the current event
	Machine() *Machine

	// Event returns the event being processed
	Event() Event

	// Get retrieves a value from the extended state
	Get(key string) (any, bool)

	// Set stores a value in the extended state
	Set(key string, value any)

	// GetAll returns a snapshot of the extended state
	GetAll() map[string]any

	// Post enqueues an event on the machine's internal queue. It is the
	// only safe way for an action to trigger a follow-up transition; the
	// queued event is processed after the current step commits, before
	// Dispatch returns.
	Post(name string, payload any)
}

type machineContext struct {
	context.Context
	machine *Machine
	event   Event
	mu      sync.RWMutex
	data    map[string]any
}

func newMachineContext(parent context.Context, m *Machine) *machineContext {
	if parent == nil {
		parent = context.Background()
	}
	return &machineContext{
		Context: parent,
		machine: m,
		data:    make(map[string]any),
	}
}

func (c *machineContext) Machine() *Machine {
	return c.machine
}

func (c *machineContext) Event() Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.event
}

func (c *machineContext) updateEvent(e Event) {
	c.mu.Lock()
	c.event = e
	c.mu.Unlock()
}

func (c *machineContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *machineContext) Set(key string, value any) {
	c.mu.Lock()
	c.data[key] = value
	c.mu.Unlock()
}

func (c *machineContext) GetAll() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]any, len(c.data))
	for k, v := range c.data {
		snapshot[k] = v
	}
	return snapshot
}

func (c *machineContext) Post(name string, payload any) {
	c.machine.enqueue(newInternalEvent(name, payload))
}
