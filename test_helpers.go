package strata

import (
	"fmt"
	"sync"
	"testing"
)

// TestObserver records every notification it receives, in order, for
// assertions in tests. It is safe for concurrent use.
type TestObserver struct {
	mu          sync.Mutex
	entries     []string
	exits       []string
	transitions []string
	guards      []string
	unhandled   []string
	errors      []error
	started     int
	stopped     int
}

// NewTestObserver creates an empty recording observer
func NewTestObserver() *TestObserver {
	return &TestObserver{}
}

func (o *TestObserver) OnTransition(from, to string, event Event, ctx Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, fmt.Sprintf("%s->%s:%s", from, to, event.Name))
}

func (o *TestObserver) OnStateEnter(state string, ctx Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, state)
}

func (o *TestObserver) OnStateExit(state string, ctx Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exits = append(o.exits, state)
}

func (o *TestObserver) OnGuardEvaluation(from, to string, event Event, passed bool, ctx Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.guards = append(o.guards, fmt.Sprintf("%s->%s:%s=%t", from, to, event.Name, passed))
}

func (o *TestObserver) OnEventUnhandled(event Event, ctx Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.unhandled = append(o.unhandled, event.Name)
}

func (o *TestObserver) OnError(err error, ctx Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, err)
}

func (o *TestObserver) OnMachineStarted(ctx Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *TestObserver) OnMachineStopped(ctx Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopped++
}

// Entries returns the recorded state entries in order
func (o *TestObserver) Entries() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.entries...)
}

// Exits returns the recorded state exits in order
func (o *TestObserver) Exits() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.exits...)
}

// Transitions returns the recorded transitions as "from->to:event" strings
func (o *TestObserver) Transitions() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.transitions...)
}

// Unhandled returns the names of unhandled events in order
func (o *TestObserver) Unhandled() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.unhandled...)
}

// Errors returns the recorded errors in order
func (o *TestObserver) Errors() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.errors...)
}

// StartedCount returns how many times the machine reported starting
func (o *TestObserver) StartedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// StoppedCount returns how many times the machine reported stopping
func (o *TestObserver) StoppedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopped
}

// Reset discards everything recorded so far
func (o *TestObserver) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = nil
	o.exits = nil
	o.transitions = nil
	o.guards = nil
	o.unhandled = nil
	o.errors = nil
	o.started = 0
	o.stopped = 0
}

// AssertActive fails the test unless every named state is active
func AssertActive(t *testing.T, m *Machine, states ...string) {
	t.Helper()
	for _, s := range states {
		if !m.IsActive(s) {
			t.Errorf("expected state %q to be active, configuration is %v", s, m.Configuration())
		}
	}
}

// AssertNotActive fails the test if any named state is active
func AssertNotActive(t *testing.T, m *Machine, states ...string) {
	t.Helper()
	for _, s := range states {
		if m.IsActive(s) {
			t.Errorf("expected state %q to be inactive, configuration is %v", s, m.Configuration())
		}
	}
}

// AssertOrder fails the test unless got equals want element for element
func AssertOrder(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s: got %v, want %v", label, got, want)
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: got %v, want %v", label, got, want)
			return
		}
	}
}

// AssertHandled fails the test unless the dispatch result reports the event
// as handled
func AssertHandled(t *testing.T, res Result, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !res.Handled {
		t.Errorf("expected event to be handled, configuration is %v", res.Configuration)
	}
}

// mustBuild builds the graph and fails the test on error
func mustBuild(t *testing.T, b *GraphBuilder) *Graph {
	t.Helper()
	g, err := b.Build()
	if err != nil {
		t.Fatalf("graph build failed: %v", err)
	}
	return g
}

// mustStart creates and starts a machine for the graph
func mustStart(t *testing.T, g *Graph, opts ...Option) *Machine {
	t.Helper()
	m, err := New(g, opts...)
	if err != nil {
		t.Fatalf("machine creation failed: %v", err)
	}
	if err := m.Start(nil); err != nil {
		t.Fatalf("machine start failed: %v", err)
	}
	return m
}

// mustDispatch dispatches the event and fails the test on error
func mustDispatch(t *testing.T, m *Machine, name string) Result {
	t.Helper()
	res, err := m.Dispatch(NewEvent(name, nil))
	if err != nil {
		t.Fatalf("dispatch of %q failed: %v", name, err)
	}
	return res
}

// newToggleGraph builds a flat three-state player: idle, running, paused
func newToggleGraph(t *testing.T) *Graph {
	t.Helper()
	b := NewGraph()
	idle := b.State("idle").Initial()
	idle.To("running").On("start")
	running := b.State("running")
	running.To("paused").On("pause")
	running.To("idle").On("stop")
	paused := b.State("paused")
	paused.To("running").On("resume")
	paused.To("idle").On("stop")
	return mustBuild(t, b)
}

// newNestedGraph builds a three-level hierarchy next to a flat sibling:
//
//	outer > middle > inner, leaf
//	other
func newNestedGraph(t *testing.T) *Graph {
	t.Helper()
	b := NewGraph()
	outer := b.Composite("outer")
	outer.Initial()
	outer.To("other").On("leave")
	middle := outer.Composite("middle")
	middle.Initial()
	middle.To("other").On("escape")
	inner := middle.State("inner")
	inner.Initial()
	inner.To("leaf").On("step")
	inner.To("other").On("leave")
	leaf := middle.State("leaf")
	leaf.To("inner").On("back")
	other := b.State("other")
	other.To("inner").On("enter")
	return mustBuild(t, b)
}

// newOrthoGraph builds an orthogonal state with independent audio and video
// regions next to an off state
func newOrthoGraph(t *testing.T) *Graph {
	t.Helper()
	b := NewGraph()
	off := b.State("off").Initial()
	off.To("on").On("power")
	on := b.Orthogonal("on")
	on.To("off").On("power")
	audio := on.Region("audio")
	muted := audio.State("muted").Initial()
	muted.To("loud").On("unmute")
	loud := audio.State("loud")
	loud.To("muted").On("mute")
	video := on.Region("video")
	sd := video.State("sd").Initial()
	sd.To("hd").On("enhance")
	hd := video.State("hd")
	hd.To("sd").On("degrade")
	return mustBuild(t, b)
}

// newHistoryGraph builds a composite with shallow or deep history next to an
// interrupt state
func newHistoryGraph(t *testing.T, deep bool) *Graph {
	t.Helper()
	b := NewGraph()
	work := b.Composite("work")
	work.Initial()
	work.To("interrupted").On("interrupt")
	if deep {
		work.DeepHistory("work.hist")
	} else {
		work.History("work.hist")
	}
	drafting := work.Composite("drafting")
	drafting.Initial()
	writing := drafting.State("writing")
	writing.Initial()
	writing.To("reviewing").On("finish")
	reviewing := drafting.State("reviewing")
	reviewing.To("writing").On("redo")
	reviewing.To("work.hist").On("refresh")
	work.State("published")
	drafting.To("published").On("publish")
	interrupted := b.State("interrupted")
	interrupted.To("work.hist").On("resume")
	return mustBuild(t, b)
}
