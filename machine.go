package strata

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type machinePhase int

const (
	phaseNew machinePhase = iota
	phaseRunning
	phaseStopped
)

func (p machinePhase) String() string {
	switch p {
	case phaseRunning:
		return "running"
	case phaseStopped:
		return "stopped"
	default:
		return "new"
	}
}

// Machine is a running instance of a Graph. Each machine owns its active
// configuration, history records, extended state and event queue; any number
// of machines can share one graph.
//
// Machines process events one at a time. Dispatch, Start and Stop reject
// concurrent and re-entrant calls with an InvalidStateError instead of
// blocking, so an action that calls Dispatch on its own machine fails fast
// rather than deadlocking. Actions trigger follow-up work through
// Context.Post, which queues the event for the same run-to-completion step.
type Machine struct {
	id    string
	graph *Graph

	// mu guards cfg, hist, completed and phase for concurrent readers;
	// busy serializes the dispatch loop itself
	mu        sync.RWMutex
	busy      atomic.Bool
	phase     machinePhase
	cfg       *configuration
	hist      *historyTracker
	completed map[stateID]bool

	ctx    *machineContext
	obs    *observerManager
	timers *TimerManager

	queueMu sync.Mutex
	queue   []Event

	strict    bool
	unhandled func(Context, Event)
}

// Option configures a Machine at construction time
type Option func(*Machine)

// WithStrictRegionConflicts makes overlapping transition scopes across
// orthogonal regions an AmbiguousTransitionError instead of resolving them
// in favor of the earlier declaration
func WithStrictRegionConflicts() Option {
	return func(m *Machine) { m.strict = true }
}

// WithUnhandledHandler installs a callback invoked whenever an event matches
// no transition in the active configuration
func WithUnhandledHandler(fn func(Context, Event)) Option {
	return func(m *Machine) { m.unhandled = fn }
}

// WithObserver registers an observer at construction time
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.obs.add(o) }
}

// New creates a machine for the given graph. The graph is validated first if
// it has not been already.
func New(g *Graph, opts ...Option) (*Machine, error) {
	if g == nil {
		return nil, NewGraphError("", "graph is nil")
	}
	if !g.Validated() {
		if err := g.Validate(); err != nil {
			return nil, err
		}
	}
	m := &Machine{
		id:        uuid.New().String(),
		graph:     g,
		phase:     phaseNew,
		cfg:       newConfiguration(),
		hist:      newHistoryTracker(),
		completed: make(map[stateID]bool),
		obs:       newObserverManager(),
	}
	m.ctx = newMachineContext(context.Background(), m)
	m.timers = newTimerManager(m)
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// ID returns the machine's unique identifier
func (m *Machine) ID() string {
	return m.id
}

// Graph returns the graph this machine runs
func (m *Machine) Graph() *Graph {
	return m.graph
}

// Context returns the machine's context, carrying the extended state
func (m *Machine) Context() Context {
	return m.ctx
}

// Timers returns the machine's timer manager
func (m *Machine) Timers() *TimerManager {
	return m.timers
}

// AddObserver registers an observer for subsequent events
func (m *Machine) AddObserver(o Observer) {
	m.obs.add(o)
}

// RemoveObserver unregisters a previously added observer
func (m *Machine) RemoveObserver(o Observer) {
	m.obs.remove(o)
}

// Start enters the initial configuration and begins accepting events. A
// stopped machine can be started again; history records and extended state
// from the previous run are discarded.
func (m *Machine) Start(parent context.Context) error {
	if !m.busy.CompareAndSwap(false, true) {
		return NewInvalidStateError("start", "machine is processing an event")
	}
	defer m.busy.Store(false)

	if m.currentPhase() == phaseRunning {
		return NewInvalidStateError("start", "machine is already started")
	}

	m.mu.Lock()
	m.cfg.clear()
	m.hist.clear()
	m.completed = make(map[stateID]bool)
	m.phase = phaseRunning
	m.mu.Unlock()
	m.clearQueue()
	m.ctx = newMachineContext(parent, m)

	initial := m.graph.regions[rootRegion].initial
	ev := newInternalEvent("", nil)
	m.ctx.updateEvent(ev)
	if err := m.enterState(initial, ev); err != nil {
		m.obs.notifyError(err, m.ctx)
		return err
	}
	if err := m.descendDefaults(initial, ev); err != nil {
		m.obs.notifyError(err, m.ctx)
		return err
	}
	m.checkCompletion()
	m.obs.notifyMachineStarted(m.ctx)

	if err := m.drain(); err != nil {
		return err
	}
	return nil
}

// Stop exits the active configuration innermost first and cancels all
// pending timers. After Stop, Dispatch returns an InvalidStateError until the
// machine is started again.
func (m *Machine) Stop() error {
	if !m.busy.CompareAndSwap(false, true) {
		return NewInvalidStateError("stop", "machine is processing an event")
	}
	defer m.busy.Store(false)

	if m.currentPhase() != phaseRunning {
		return NewInvalidStateError("stop", "machine is not running")
	}

	m.timers.stopAll()
	m.clearQueue()

	ev := newInternalEvent("", nil)
	m.ctx.updateEvent(ev)
	if top, ok := m.cfg.childOf(rootRegion); ok {
		exits := m.cfg.subtree(m.graph, top)
		for _, s := range exits {
			if m.graph.states[s].kind == KindComposite {
				m.hist.record(m.graph, m.cfg, s)
			}
		}
		for _, s := range exits {
			if err := m.exitState(s, ev); err != nil {
				m.obs.notifyError(err, m.ctx)
				return err
			}
		}
	}

	m.mu.Lock()
	m.phase = phaseStopped
	m.mu.Unlock()
	m.obs.notifyMachineStopped(m.ctx)
	return nil
}

// Dispatch processes one external event to completion: the event itself plus
// everything actions posted to the internal queue on its behalf. It returns
// once the queue is drained or a callback fails; on failure the machine keeps
// the last committed configuration and the remaining queue is discarded.
func (m *Machine) Dispatch(ev Event) (Result, error) {
	if !m.busy.CompareAndSwap(false, true) {
		return Result{}, NewInvalidStateError("dispatch", "machine is already processing an event")
	}
	defer m.busy.Store(false)

	if phase := m.currentPhase(); phase != phaseRunning {
		return Result{}, NewInvalidStateError("dispatch", fmt.Sprintf("machine is %s", phase))
	}

	before := m.cfg.names(m.graph)

	handled, err := m.step(ev)
	if err == nil {
		err = m.drain()
	} else {
		m.clearQueue()
	}

	after := m.cfg.names(m.graph)
	return Result{
		Handled:       handled,
		StateChanged:  !sameNames(before, after),
		Configuration: after,
	}, err
}

// Send builds an event from a name and payload and dispatches it
func (m *Machine) Send(name string, payload any) (Result, error) {
	return m.Dispatch(NewEvent(name, payload))
}

// Post enqueues an event on the internal queue without processing it. The
// queued event runs as part of the next dispatch.
func (m *Machine) Post(name string, payload any) {
	m.enqueue(newInternalEvent(name, payload))
}

// IsActive reports whether the named state is in the active configuration
func (m *Machine) IsActive(name string) bool {
	id, ok := m.graph.lookup(name)
	if !ok {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.isActive(id)
}

// Configuration returns the names of every active state, outermost first
// within each branch, branches in declaration order
func (m *Machine) Configuration() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.names(m.graph)
}

// ActiveLeaves returns the names of the innermost active states
func (m *Machine) ActiveLeaves() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	leaves := m.cfg.leaves(m.graph)
	names := make([]string, len(leaves))
	for i, s := range leaves {
		names[i] = m.graph.nameOf(s)
	}
	return names
}

// IsRunning reports whether the machine has been started and not stopped
func (m *Machine) IsRunning() bool {
	return m.currentPhase() == phaseRunning
}

func (m *Machine) currentPhase() machinePhase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

func (m *Machine) enqueue(ev Event) {
	m.queueMu.Lock()
	m.queue = append(m.queue, ev)
	m.queueMu.Unlock()
}

func (m *Machine) dequeue() (Event, bool) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if len(m.queue) == 0 {
		return Event{}, false
	}
	ev := m.queue[0]
	m.queue = m.queue[1:]
	return ev, true
}

func (m *Machine) clearQueue() {
	m.queueMu.Lock()
	m.queue = nil
	m.queueMu.Unlock()
}

// drain runs queued internal events in FIFO order until the queue is empty.
// The first failure stops the loop and discards what remains.
func (m *Machine) drain() error {
	for {
		ev, ok := m.dequeue()
		if !ok {
			return nil
		}
		if _, err := m.step(ev); err != nil {
			m.clearQueue()
			return err
		}
	}
}

// step resolves and executes one event against the current configuration
func (m *Machine) step(ev Event) (bool, error) {
	m.ctx.updateEvent(ev)
	plan, err := resolve(m.graph, m.cfg, ev, m.ctx, m.strict, m.obs)
	if err != nil {
		m.obs.notifyError(err, m.ctx)
		return false, err
	}
	if len(plan) == 0 {
		m.obs.notifyEventUnhandled(ev, m.ctx)
		if m.unhandled != nil {
			m.unhandled(m.ctx, ev)
		}
		return false, nil
	}
	for i := range plan {
		if err := m.execute(&plan[i], ev); err != nil {
			m.obs.notifyError(err, m.ctx)
			return true, err
		}
	}
	m.checkCompletion()
	return true, nil
}

// execute commits one firing step by step: history snapshots, exits
// innermost first, the transition action, then entries outermost first with
// default or history descent below the target. Each committed step survives
// a later failure.
func (m *Machine) execute(f *firing, ev Event) error {
	fromName := m.graph.nameOf(f.source)

	if f.t.kind == Internal {
		if err := safeExecuteAction(f.t.action, m.ctx); err != nil {
			return NewActionError("transition", fromName, ev.Name, err)
		}
		m.obs.notifyTransition(fromName, fromName, ev, m.ctx)
		return nil
	}

	for _, s := range f.exits {
		if m.graph.states[s].kind == KindComposite {
			m.hist.record(m.graph, m.cfg, s)
		}
	}
	for _, s := range f.exits {
		if err := m.exitState(s, ev); err != nil {
			return err
		}
	}

	if err := safeExecuteAction(f.t.action, m.ctx); err != nil {
		return NewActionError("transition", fromName, ev.Name, err)
	}

	var target stateID = f.source
	for _, s := range f.enters {
		if err := m.enterState(s, ev); err != nil {
			return err
		}
		target = s
	}
	if f.history != noState {
		if err := m.enterHistory(target, f.history, ev); err != nil {
			return err
		}
	} else if err := m.descendDefaults(target, ev); err != nil {
		return err
	}

	m.obs.notifyTransition(fromName, m.graph.nameOf(f.t.target), ev, m.ctx)
	return nil
}

// exitState runs the exit action, then removes the state from the
// configuration. A failing exit action leaves the state active.
func (m *Machine) exitState(s stateID, ev Event) error {
	st := &m.graph.states[s]
	if err := safeExecuteAction(st.exit, m.ctx); err != nil {
		return NewActionError("exit", st.name, ev.Name, err)
	}
	m.mu.Lock()
	m.cfg.deactivate(m.graph, s)
	delete(m.completed, s)
	m.mu.Unlock()
	m.obs.notifyStateExit(st.name, m.ctx)
	return nil
}

// enterState adds the state to the configuration, then runs its entry
// action. A failing entry action leaves the state active; the failure
// surfaces as an ActionError from the dispatch.
func (m *Machine) enterState(s stateID, ev Event) error {
	st := &m.graph.states[s]
	m.mu.Lock()
	m.cfg.activate(m.graph, s)
	m.mu.Unlock()
	if err := safeExecuteAction(st.entry, m.ctx); err != nil {
		return NewActionError("entry", st.name, ev.Name, err)
	}
	m.obs.notifyStateEnter(st.name, m.ctx)
	return nil
}

// descendDefaults enters the initial state of every region below s,
// recursively, outermost first
func (m *Machine) descendDefaults(s stateID, ev Event) error {
	for _, r := range m.graph.states[s].regions {
		child := m.graph.regions[r].initial
		if err := m.enterState(child, ev); err != nil {
			return err
		}
		if err := m.descendDefaults(child, ev); err != nil {
			return err
		}
	}
	return nil
}

// enterHistory restores the recorded configuration of composite, entered
// moments ago by the surrounding firing. With no usable record it falls back
// to the pseudostate's default target, or the region's initial state.
func (m *Machine) enterHistory(composite, h stateID, ev Event) error {
	hs := &m.graph.states[h]
	rec, ok := m.hist.lookup(composite)
	if !ok || rec.shallow == noState {
		if hs.histDefault != noState {
			if err := m.enterState(hs.histDefault, ev); err != nil {
				return err
			}
			return m.descendDefaults(hs.histDefault, ev)
		}
		return m.descendDefaults(composite, ev)
	}

	if hs.histMode == HistoryShallow {
		if err := m.enterState(rec.shallow, ev); err != nil {
			return err
		}
		return m.descendDefaults(rec.shallow, ev)
	}

	depth := m.graph.states[composite].depth
	for _, leaf := range rec.leaves {
		for _, s := range m.graph.pathTo(leaf) {
			if m.graph.states[s].depth <= depth || m.cfg.isActive(s) {
				continue
			}
			if err := m.enterState(s, ev); err != nil {
				return err
			}
		}
		if err := m.descendDefaults(leaf, ev); err != nil {
			return err
		}
	}
	return nil
}

// checkCompletion posts a completion event for every composite or orthogonal
// state whose regions have all reached a final state. Each completion fires
// once per activation.
func (m *Machine) checkCompletion() {
	for _, s := range m.cfg.states() {
		st := &m.graph.states[s]
		if len(st.regions) == 0 || m.completed[s] {
			continue
		}
		done := true
		for _, r := range st.regions {
			child, ok := m.cfg.childOf(r)
			if !ok || m.graph.states[child].kind != KindFinal {
				done = false
				break
			}
		}
		if done {
			m.mu.Lock()
			m.completed[s] = true
			m.mu.Unlock()
			m.enqueue(newInternalEvent(Done(st.name), nil))
		}
	}
}

// safeEvaluateGuard evaluates a guard, converting a panic into an error
func safeEvaluateGuard(g Guard, ctx Context) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = false
			err = fmt.Errorf("guard panicked: %v", r)
		}
	}()
	return g.Evaluate(ctx)
}

// safeExecuteAction runs an action, converting a panic into an error. A nil
// action is a no-op.
func safeExecuteAction(a Action, ctx Context) (err error) {
	if a == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return a.Execute(ctx)
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
