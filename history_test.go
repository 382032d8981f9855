package strata

import "testing"

func TestShallowHistoryRestoresDirectChild(t *testing.T) {
	m := mustStart(t, newHistoryGraph(t, false))
	AssertActive(t, m, "work", "drafting", "writing")

	mustDispatch(t, m, "finish")
	AssertActive(t, m, "reviewing")

	mustDispatch(t, m, "interrupt")
	AssertActive(t, m, "interrupted")
	AssertNotActive(t, m, "work", "drafting", "reviewing")

	// shallow history re-enters drafting but descends to its initial
	// state, not the remembered leaf
	mustDispatch(t, m, "resume")
	AssertActive(t, m, "work", "drafting", "writing")
	AssertNotActive(t, m, "reviewing")
}

func TestDeepHistoryRestoresFullConfiguration(t *testing.T) {
	m := mustStart(t, newHistoryGraph(t, true))
	mustDispatch(t, m, "finish")
	mustDispatch(t, m, "interrupt")
	AssertActive(t, m, "interrupted")

	mustDispatch(t, m, "resume")
	AssertActive(t, m, "work", "drafting", "reviewing")
	AssertNotActive(t, m, "writing")
}

func TestHistoryFallbackToDefault(t *testing.T) {
	b := NewGraph()
	interrupted := b.State("interrupted").Initial()
	interrupted.To("work.hist").On("resume")
	work := b.Composite("work")
	work.History("work.hist").Default("published")
	drafting := work.Composite("drafting")
	drafting.Initial()
	drafting.State("writing").Initial()
	work.State("published")
	m := mustStart(t, mustBuild(t, b))

	// no history has ever been recorded, so the pseudostate's default wins
	mustDispatch(t, m, "resume")
	AssertActive(t, m, "work", "published")
	AssertNotActive(t, m, "drafting")
}

func TestHistoryFallbackToInitial(t *testing.T) {
	b := NewGraph()
	interrupted := b.State("interrupted").Initial()
	interrupted.To("work.hist").On("resume")
	work := b.Composite("work")
	work.History("work.hist")
	drafting := work.Composite("drafting")
	drafting.Initial()
	drafting.State("writing").Initial()
	work.State("published")
	m := mustStart(t, mustBuild(t, b))

	mustDispatch(t, m, "resume")
	AssertActive(t, m, "work", "drafting", "writing")
}

func TestDeepHistorySelfRoundTrip(t *testing.T) {
	obs := NewTestObserver()
	m := mustStart(t, newHistoryGraph(t, true), WithObserver(obs))
	mustDispatch(t, m, "finish")
	obs.Reset()

	// the refresh transition exits the whole composite and immediately
	// re-enters through its own history; the record written by this very
	// step must be visible on the way back in
	mustDispatch(t, m, "refresh")
	AssertOrder(t, "exits", obs.Exits(), []string{"reviewing", "drafting", "work"})
	AssertOrder(t, "entries", obs.Entries(), []string{"work", "drafting", "reviewing"})
	AssertActive(t, m, "work", "drafting", "reviewing")
}

func TestHistoryAfterRestart(t *testing.T) {
	m := mustStart(t, newHistoryGraph(t, true))
	mustDispatch(t, m, "finish")
	mustDispatch(t, m, "interrupt")

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := m.Start(nil); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	AssertActive(t, m, "work", "drafting", "writing")

	mustDispatch(t, m, "interrupt")
	mustDispatch(t, m, "resume")
	AssertActive(t, m, "work", "drafting", "writing")
	AssertNotActive(t, m, "reviewing")
}
