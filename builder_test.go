package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderFluentConstruction(t *testing.T) {
	b := NewGraph()
	idle := b.State("idle").Initial()
	idle.To("running").On("start").WhenFunc(func(ctx Context) bool { return true })
	running := b.State("running")
	running.To("idle").On("stop").DoFunc(func(ctx Context) error { return nil })
	running.OnInternal("tick")

	g, err := b.Build()
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.True(t, g.Validated())
	assert.Equal(t, "idle", g.Initial())
	assert.Equal(t, []string{"idle", "running"}, g.StateNames())

	infos := g.Transitions()
	require.Len(t, infos, 3)
	assert.True(t, infos[0].Guarded)
	assert.Equal(t, External, infos[0].Kind)
	assert.Equal(t, Internal, infos[2].Kind)
	assert.Equal(t, "running on tick (internal)", infos[2].String())
}

func TestBuilderDuplicateName(t *testing.T) {
	b := NewGraph()
	b.State("twin").Initial()
	b.State("twin")

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, IsGraphError(err))
	assert.Contains(t, err.Error(), "duplicate")
}

func TestBuilderEmptyName(t *testing.T) {
	b := NewGraph()
	b.State("")

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, IsGraphError(err))
}

func TestBuilderDoubleInitial(t *testing.T) {
	b := NewGraph()
	b.State("a").Initial()
	b.State("b").Initial()

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has an initial state")
}

func TestBuilderForwardReference(t *testing.T) {
	b := NewGraph()
	early := b.State("early").Initial()
	early.To("late").On("go")
	b.State("late")

	g, err := b.Build()
	require.NoError(t, err)
	assert.True(t, g.Contains("late"))
}

func TestBuilderUnknownHistoryDefault(t *testing.T) {
	b := NewGraph()
	b.State("outside").Initial()
	work := b.Composite("work")
	work.History("work.hist").Default("ghost")
	work.State("writing").Initial()

	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnknownState, GetErrorCode(err))
}

func TestBuilderHistoryDefaultMustBeSibling(t *testing.T) {
	b := NewGraph()
	b.State("outside").Initial()
	work := b.Composite("work")
	work.History("work.hist").Default("outside")
	work.State("writing").Initial()

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, IsGraphError(err))
	assert.Contains(t, err.Error(), "sibling")
}

func TestBuilderNestedComposites(t *testing.T) {
	b := NewGraph()
	outer := b.Composite("outer")
	outer.Initial()
	middle := outer.Composite("middle")
	middle.Initial()
	middle.State("inner").Initial()

	g, err := b.Build()
	require.NoError(t, err)

	info, ok := g.Describe("middle")
	require.True(t, ok)
	assert.Equal(t, "outer", info.Parent)
	assert.Equal(t, KindComposite, info.Kind)
	assert.Equal(t, "inner", info.Initial)
}

func TestBuilderEntryExitHooksAttached(t *testing.T) {
	entered := false
	b := NewGraph()
	b.State("idle").Initial().OnEntryFunc(func(ctx Context) error {
		entered = true
		return nil
	})
	g, err := b.Build()
	require.NoError(t, err)

	m, err := New(g)
	require.NoError(t, err)
	require.NoError(t, m.Start(nil))
	assert.True(t, entered)
}

func TestBuilderErrorShortCircuits(t *testing.T) {
	b := NewGraph()
	b.State("twin").Initial()
	dup := b.State("twin")
	// operations on the failed declaration must not panic
	dup.OnEntryFunc(func(ctx Context) error { return nil })
	dup.To("twin").On("loop")

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
