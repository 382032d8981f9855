// Package strata implements a hierarchical (nested and orthogonal) state
// machine engine: an immutable state graph, a side-effect-free transition
// resolver, and a run-to-completion dispatch loop with shallow/deep history.
package strata

// stateID indexes a state in the graph arena. All structural references
// (parent, children, regions, transition endpoints) are arena indices; the
// graph is the sole owner of every node and nothing holds direct pointers
// across the hierarchy.
type stateID int

// regionID indexes a region in the graph arena
type regionID int

const noState stateID = -1

// rootRegion holds the top-level states of every graph
const rootRegion regionID = 0

// Kind classifies a state in the graph
type Kind int

const (
	// KindSimple is a leaf state with no substructure
	KindSimple Kind = iota
	// KindComposite contains one region with exactly one active child
	KindComposite
	// KindOrthogonal contains two or more concurrently active regions
	KindOrthogonal
	// KindFinal marks completion of its region
	KindFinal
	// KindHistory is a pseudostate restoring its parent's last-active
	// configuration
	KindHistory
)

func (k Kind) String() string {
	switch k {
	case KindComposite:
		return "composite"
	case KindOrthogonal:
		return "orthogonal"
	case KindFinal:
		return "final"
	case KindHistory:
		return "history"
	default:
		return "simple"
	}
}

// HistoryMode selects how much configuration a history pseudostate restores
type HistoryMode int

const (
	// HistoryNone means no history is recorded
	HistoryNone HistoryMode = iota
	// HistoryShallow restores only the immediate child active at exit
	HistoryShallow
	// HistoryDeep restores the full active subtree present at exit
	HistoryDeep
)

type state struct {
	id          stateID
	name        string
	kind        Kind
	parent      stateID
	owner       regionID
	regions     []regionID
	entry       Action
	exit        Action
	histMode    HistoryMode // history pseudostates only
	histDefault stateID     // optional fallback target, history pseudostates only
	depth       int
	transitions []int // indices into Graph.transitions, declaration order
}

type region struct {
	id      regionID
	name    string
	owner   stateID // noState for the root region
	states  []stateID
	initial stateID
}

// Graph is an immutable arena of states, regions and transitions. It is
// produced by a GraphBuilder, checked once by Validate, and read-only for
// the life of every Machine built on it.
type Graph struct {
	states      []state
	regions     []region
	transitions []transition
	byName      map[string]stateID
	validated   bool
}

func newGraph() *Graph {
	g := &Graph{byName: make(map[string]stateID)}
	g.regions = append(g.regions, region{id: rootRegion, owner: noState, initial: noState})
	return g
}

func (g *Graph) state(id stateID) *state {
	return &g.states[id]
}

func (g *Graph) region(id regionID) *region {
	return &g.regions[id]
}

func (g *Graph) lookup(name string) (stateID, bool) {
	id, ok := g.byName[name]
	return id, ok
}

func (g *Graph) nameOf(id stateID) string {
	if id == noState {
		return ""
	}
	return g.states[id].name
}

func (g *Graph) addRegion(name string, owner stateID) regionID {
	id := regionID(len(g.regions))
	g.regions = append(g.regions, region{id: id, name: name, owner: owner, initial: noState})
	if owner != noState {
		g.states[owner].regions = append(g.states[owner].regions, id)
	}
	return id
}

func (g *Graph) addState(name string, kind Kind, owner regionID) (stateID, error) {
	if name == "" {
		return noState, NewGraphError(name, "state name cannot be empty")
	}
	if _, exists := g.byName[name]; exists {
		return noState, NewGraphError(name, "duplicate state name")
	}
	id := stateID(len(g.states))
	parent := g.regions[owner].owner
	depth := 0
	if parent != noState {
		depth = g.states[parent].depth + 1
	}
	g.states = append(g.states, state{
		id:          id,
		name:        name,
		kind:        kind,
		parent:      parent,
		owner:       owner,
		histDefault: noState,
		depth:       depth,
	})
	g.regions[owner].states = append(g.regions[owner].states, id)
	g.byName[name] = id
	return id, nil
}

func (g *Graph) addTransition(t transition) {
	t.id = len(g.transitions)
	g.transitions = append(g.transitions, t)
	g.states[t.source].transitions = append(g.states[t.source].transitions, t.id)
}

// isAncestor reports whether a is a proper ancestor of b
func (g *Graph) isAncestor(a, b stateID) bool {
	if a == noState || b == noState || a == b {
		return false
	}
	for p := g.states[b].parent; p != noState; p = g.states[p].parent {
		if p == a {
			return true
		}
	}
	return false
}

// lca returns the deepest state that is an ancestor of or equal to both a
// and b, or noState when the two share no ancestor below the root region.
// It bounds the exit and entry scope of every external and local transition.
func (g *Graph) lca(a, b stateID) stateID {
	if a == noState || b == noState {
		return noState
	}
	for g.states[a].depth > g.states[b].depth {
		a = g.states[a].parent
	}
	for g.states[b].depth > g.states[a].depth {
		b = g.states[b].parent
	}
	for a != b {
		a = g.states[a].parent
		b = g.states[b].parent
		if a == noState || b == noState {
			return noState
		}
	}
	return a
}

// pathTo returns the ancestor chain of s from the top level down to s,
// inclusive
func (g *Graph) pathTo(s stateID) []stateID {
	var path []stateID
	for cur := s; cur != noState; cur = g.states[cur].parent {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// topAncestor returns the top-level ancestor of s, or s itself
func (g *Graph) topAncestor(s stateID) stateID {
	for g.states[s].parent != noState {
		s = g.states[s].parent
	}
	return s
}

// regionToward returns the region of anc that contains s. s must be a
// proper descendant of anc.
func (g *Graph) regionToward(anc, s stateID) regionID {
	for g.states[s].parent != anc {
		s = g.states[s].parent
	}
	return g.states[s].owner
}

// historyChild returns the history pseudostate declared under composite s,
// or noState
func (g *Graph) historyChild(s stateID) stateID {
	for _, r := range g.states[s].regions {
		for _, c := range g.regions[r].states {
			if g.states[c].kind == KindHistory {
				return c
			}
		}
	}
	return noState
}

// Validate checks the structural invariants of the graph: a designated
// initial state at every level, at least two regions per orthogonal state,
// transition endpoints that exist and do not cross orthogonal regions, and
// well-formed history pseudostates. A graph that fails validation cannot
// start a machine.
func (g *Graph) Validate() error {
	if len(g.regions[rootRegion].states) == 0 {
		return NewGraphError("", "graph has no states")
	}
	if g.regions[rootRegion].initial == noState {
		return NewGraphError("", "no initial state designated at the top level")
	}
	for ri := range g.regions {
		r := &g.regions[ri]
		if r.owner == noState {
			continue
		}
		owner := &g.states[r.owner]
		if len(r.states) == 0 {
			return NewGraphError(owner.name, "region '"+r.name+"' has no states")
		}
		if r.initial == noState {
			return NewGraphError(owner.name, "region '"+r.name+"' has no initial state")
		}
		if g.states[r.initial].kind == KindHistory {
			return NewGraphError(owner.name, "initial state of region '"+r.name+"' cannot be a history pseudostate")
		}
	}
	for si := range g.states {
		s := &g.states[si]
		switch s.kind {
		case KindComposite:
			if len(s.regions) != 1 {
				return NewGraphError(s.name, "composite state must own exactly one region")
			}
		case KindOrthogonal:
			if len(s.regions) < 2 {
				return NewGraphError(s.name, "orthogonal state must declare at least two regions")
			}
		case KindHistory:
			if s.parent == noState || g.states[s.parent].kind != KindComposite {
				return NewGraphError(s.name, "history pseudostate must be a direct child of a composite state")
			}
			if len(s.transitions) > 0 {
				return NewGraphError(s.name, "history pseudostate cannot have outgoing transitions")
			}
			if s.histDefault != noState && g.states[s.histDefault].owner != s.owner {
				return NewGraphError(s.name, "history default must be a sibling state")
			}
		case KindFinal:
			if len(s.transitions) > 0 {
				return NewGraphError(s.name, "final state cannot have outgoing transitions")
			}
		}
	}
	// one history pseudostate per composite
	for si := range g.states {
		s := &g.states[si]
		if s.kind != KindComposite {
			continue
		}
		count := 0
		for _, c := range g.regions[s.regions[0]].states {
			if g.states[c].kind == KindHistory {
				count++
			}
		}
		if count > 1 {
			return NewGraphError(s.name, "composite state declares more than one history pseudostate")
		}
	}
	for ti := range g.transitions {
		t := &g.transitions[ti]
		src := &g.states[t.source]
		if t.event == "" {
			return NewGraphError(src.name, "transition has no triggering event")
		}
		switch t.kind {
		case Internal:
			if t.target != noState {
				return NewGraphError(src.name, "internal transition cannot name a target state")
			}
			continue
		case Local:
			if t.target == noState {
				return NewGraphError(src.name, "local transition requires a target state")
			}
			if !g.isAncestor(t.source, t.target) {
				return NewGraphError(src.name, "local transition target must be a descendant of its source")
			}
		default:
			if t.target == noState {
				return NewGraphError(src.name, "transition requires a target state")
			}
		}
		if anc := g.lca(t.source, t.target); anc != noState && anc != t.source && anc != t.target {
			if g.states[anc].kind == KindOrthogonal && g.regionToward(anc, t.source) != g.regionToward(anc, t.target) {
				return NewGraphError(src.name, "transition crosses orthogonal regions into '"+g.nameOf(t.target)+"'")
			}
		}
	}
	g.validated = true
	return nil
}

// Validated reports whether Validate has completed successfully
func (g *Graph) Validated() bool {
	return g.validated
}

// Initial returns the name of the top-level initial state
func (g *Graph) Initial() string {
	if g.regions[rootRegion].initial == noState {
		return ""
	}
	return g.nameOf(g.regions[rootRegion].initial)
}

// Contains reports whether a state with the given name exists
func (g *Graph) Contains(name string) bool {
	_, ok := g.byName[name]
	return ok
}

// StateNames returns every state name in declaration order
func (g *Graph) StateNames() []string {
	names := make([]string, len(g.states))
	for i := range g.states {
		names[i] = g.states[i].name
	}
	return names
}

// RegionInfo is the read-only description of one region of a state
type RegionInfo struct {
	Name     string
	Initial  string
	Children []string
}

// StateInfo is the read-only description of one state, exposed for
// introspection and visualization
type StateInfo struct {
	Name     string
	Kind     Kind
	Parent   string
	Initial  string
	Children []string
	Regions  []RegionInfo
	History  HistoryMode
}

// Describe returns the description of the named state
func (g *Graph) Describe(name string) (StateInfo, bool) {
	id, ok := g.byName[name]
	if !ok {
		return StateInfo{}, false
	}
	s := &g.states[id]
	info := StateInfo{
		Name:    s.name,
		Kind:    s.kind,
		Parent:  g.nameOf(s.parent),
		History: s.histMode,
	}
	for _, r := range s.regions {
		reg := &g.regions[r]
		ri := RegionInfo{Name: reg.name}
		if reg.initial != noState {
			ri.Initial = g.nameOf(reg.initial)
		}
		for _, c := range reg.states {
			ri.Children = append(ri.Children, g.nameOf(c))
			info.Children = append(info.Children, g.nameOf(c))
		}
		info.Regions = append(info.Regions, ri)
		if s.kind == KindComposite {
			info.Initial = ri.Initial
		}
	}
	return info, true
}

// Transitions returns descriptions of every transition in declaration order
func (g *Graph) Transitions() []TransitionInfo {
	infos := make([]TransitionInfo, len(g.transitions))
	for i := range g.transitions {
		t := &g.transitions[i]
		infos[i] = TransitionInfo{
			Source:  g.nameOf(t.source),
			Target:  g.nameOf(t.target),
			Event:   t.event,
			Kind:    t.kind,
			Guarded: t.guard != nil,
		}
	}
	return infos
}

func (g *Graph) describeTransition(t *transition) string {
	return TransitionInfo{
		Source: g.nameOf(t.source),
		Target: g.nameOf(t.target),
		Event:  t.event,
		Kind:   t.kind,
	}.String()
}
