package strata

import (
	"errors"
	"testing"
)

func TestOrthogonalEntryAndExit(t *testing.T) {
	obs := NewTestObserver()
	m := mustStart(t, newOrthoGraph(t), WithObserver(obs))
	AssertOrder(t, "start entries", obs.Entries(), []string{"off"})

	obs.Reset()
	mustDispatch(t, m, "power")
	AssertOrder(t, "power-on entries", obs.Entries(), []string{"on", "muted", "sd"})
	AssertActive(t, m, "on", "muted", "sd")

	obs.Reset()
	mustDispatch(t, m, "power")
	AssertOrder(t, "power-off exits", obs.Exits(), []string{"muted", "sd", "on"})
	AssertActive(t, m, "off")
}

func TestRegionIndependence(t *testing.T) {
	obs := NewTestObserver()
	m := mustStart(t, newOrthoGraph(t), WithObserver(obs))
	mustDispatch(t, m, "power")
	obs.Reset()

	mustDispatch(t, m, "unmute")
	AssertOrder(t, "exits", obs.Exits(), []string{"muted"})
	AssertOrder(t, "entries", obs.Entries(), []string{"loud"})
	AssertActive(t, m, "on", "loud", "sd")

	obs.Reset()
	mustDispatch(t, m, "enhance")
	AssertActive(t, m, "on", "loud", "hd")
	AssertOrder(t, "audio untouched", obs.Exits(), []string{"sd"})
}

func TestEventFiresInEveryRegion(t *testing.T) {
	b := NewGraph()
	run := b.Orthogonal("run")
	run.Initial()
	ra := run.Region("a")
	a1 := ra.State("a1").Initial()
	a1.To("a2").On("toggle")
	ra.State("a2")
	rb := run.Region("b")
	b1 := rb.State("b1").Initial()
	b1.To("b2").On("toggle")
	rb.State("b2")

	obs := NewTestObserver()
	m := mustStart(t, mustBuild(t, b), WithObserver(obs))
	obs.Reset()

	res := mustDispatch(t, m, "toggle")
	if !res.Handled {
		t.Fatal("event should be handled in both regions")
	}
	AssertOrder(t, "transitions", obs.Transitions(), []string{"a1->a2:toggle", "b1->b2:toggle"})
	AssertActive(t, m, "run", "a2", "b2")
}

func newConflictGraph(t *testing.T) *Graph {
	t.Helper()
	b := NewGraph()
	run := b.Orthogonal("run")
	run.Initial()
	ra := run.Region("a")
	a1 := ra.State("a1").Initial()
	a1.To("halt").On("abort")
	rb := run.Region("b")
	b1 := rb.State("b1").Initial()
	b1.To("b2").On("abort")
	rb.State("b2")
	b.State("halt")
	return mustBuild(t, b)
}

func TestRegionConflictDeclarationOrderWins(t *testing.T) {
	obs := NewTestObserver()
	m := mustStart(t, newConflictGraph(t), WithObserver(obs))
	obs.Reset()

	// region a's transition leaves the orthogonal state entirely; region
	// b's conflicting transition is shadowed by the earlier declaration
	mustDispatch(t, m, "abort")
	AssertOrder(t, "transitions", obs.Transitions(), []string{"a1->halt:abort"})
	AssertActive(t, m, "halt")
	AssertNotActive(t, m, "run", "b2")
}

func TestRegionConflictStrictMode(t *testing.T) {
	m := mustStart(t, newConflictGraph(t), WithStrictRegionConflicts())

	_, err := m.Dispatch(NewEvent("abort", nil))
	var amb *AmbiguousTransitionError
	if !errors.As(err, &amb) {
		t.Fatalf("expected region conflict error, got %v", err)
	}
	if amb.Code != ErrCodeRegionConflict {
		t.Errorf("code = %v, want ErrCodeRegionConflict", amb.Code)
	}
	// the failed resolution left the configuration untouched
	AssertActive(t, m, "run", "a1", "b1")
}

func TestDeeperSourcePreemptsAcrossRegions(t *testing.T) {
	b := NewGraph()
	run := b.Orthogonal("run")
	run.Initial()
	run.To("halt").On("mix")
	ra := run.Region("a")
	ra.State("a1").Initial()
	rb := run.Region("b")
	b1 := rb.State("b1").Initial()
	b1.To("b2").On("mix")
	rb.State("b2")
	b.State("halt")

	obs := NewTestObserver()
	m := mustStart(t, mustBuild(t, b), WithObserver(obs))
	obs.Reset()

	// b1's own transition shadows the one inherited from the orthogonal
	// state, and the machine stays in "run"
	mustDispatch(t, m, "mix")
	AssertOrder(t, "transitions", obs.Transitions(), []string{"b1->b2:mix"})
	AssertActive(t, m, "run", "a1", "b2")
	AssertNotActive(t, m, "halt")
}

func TestOrthogonalCompletion(t *testing.T) {
	b := NewGraph()
	both := b.Orthogonal("both")
	both.Initial()
	ra := both.Region("a")
	wa := ra.State("wa").Initial()
	wa.To("fa").On("finishA")
	ra.Final("fa")
	rb := both.Region("b")
	wb := rb.State("wb").Initial()
	wb.To("fb").On("finishB")
	rb.Final("fb")
	both.To("archived").On(Done("both"))
	b.State("archived")
	m := mustStart(t, mustBuild(t, b))

	mustDispatch(t, m, "finishA")
	AssertActive(t, m, "both", "fa", "wb")

	// only when every region is final does the completion event fire
	res := mustDispatch(t, m, "finishB")
	AssertOrder(t, "final configuration", res.Configuration, []string{"archived"})
}
