package viz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-sm/strata"
)

func buildPlayerGraph(t *testing.T) *strata.Graph {
	t.Helper()
	b := strata.NewGraph()
	idle := b.State("idle").Initial()
	idle.To("playing").On("play")
	playing := b.Composite("playing")
	playing.To("idle").On("stop")
	playing.DeepHistory("playing.hist")
	track := playing.State("track")
	track.Initial()
	track.To("playing.done").On("finish")
	playing.Final("playing.done")
	return mustBuild(t, b)
}

func mustBuild(t *testing.T, b *strata.GraphBuilder) *strata.Graph {
	t.Helper()
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestDOTBasicStructure(t *testing.T) {
	out := DOT(buildPlayerGraph(t))

	assert.True(t, strings.HasPrefix(out, "digraph statemachine {"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "}"))
	assert.Contains(t, out, "rankdir=TB;")
	assert.Contains(t, out, "compound=true;")

	// the initial marker points at the top-level initial state
	assert.Contains(t, out, "__initial -> idle;")
}

func TestDOTCompositeCluster(t *testing.T) {
	out := DOT(buildPlayerGraph(t))

	assert.Contains(t, out, "subgraph cluster_1 {")
	assert.Contains(t, out, `label="playing";`)
	assert.Contains(t, out, "__anchor_playing [shape=point, style=invis];")
	// edges to the composite attach to its anchor with lhead
	assert.Contains(t, out, "idle -> __anchor_playing")
	assert.Contains(t, out, "lhead=cluster_1")
}

func TestDOTSpecialNodes(t *testing.T) {
	out := DOT(buildPlayerGraph(t))

	assert.Contains(t, out, `shape=doublecircle`)
	assert.Contains(t, out, `[label="H*", shape=circle`)
}

func TestDOTOrthogonalRegions(t *testing.T) {
	b := strata.NewGraph()
	on := b.Orthogonal("on")
	on.Initial()
	on.Region("audio").State("muted").Initial()
	on.Region("video").State("sd").Initial()
	g := mustBuild(t, b)

	out := DOTWithOptions(g, Options{Title: "player", RankDir: "LR"})
	assert.Contains(t, out, "rankdir=LR;")
	assert.Contains(t, out, `label="player";`)
	assert.Contains(t, out, `label="audio";`)
	assert.Contains(t, out, `label="video";`)
	assert.Contains(t, out, "style=dashed;")
}

func TestDOTTransitionStyles(t *testing.T) {
	b := strata.NewGraph()
	box := b.Composite("box")
	box.Initial()
	box.ToLocal("b").On("swap")
	a := box.State("a")
	a.Initial()
	a.OnInternal("tick")
	guarded := box.State("b")
	guarded.To("a").On("back").WhenFunc(func(ctx strata.Context) bool { return true })
	g := mustBuild(t, b)

	out := DOT(g)
	assert.Contains(t, out, "style=dashed")
	assert.Contains(t, out, "style=dotted];")
	assert.Contains(t, out, `back [guard]`)
}

func TestDOTWriteDOT(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteDOT(&sb, buildPlayerGraph(t), Options{}))
	assert.Equal(t, DOT(buildPlayerGraph(t)), sb.String())
}
