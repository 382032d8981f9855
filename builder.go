package strata

// GraphBuilder assembles a Graph with a fluent API. State names are plain
// strings and must be unique across the whole graph; transition targets may
// reference states declared later. Build resolves all references, validates
// the result and returns the first error encountered along the way.
//
//	b := NewGraph()
//	idle := b.State("idle").Initial()
//	idle.To("running").On("start")
//	running := b.State("running")
//	running.To("idle").On("stop")
//	g, err := b.Build()
type GraphBuilder struct {
	g       *Graph
	err     error
	pending []pendingTransition
	defs    []pendingDefault
}

type pendingTransition struct {
	source stateID
	target string
	event  string
	kind   TransitionKind
	guard  Guard
	action Action
}

type pendingDefault struct {
	history stateID
	target  string
}

// NewGraph creates an empty graph builder
func NewGraph() *GraphBuilder {
	return &GraphBuilder{g: newGraph()}
}

func (b *GraphBuilder) setErr(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

func (b *GraphBuilder) declare(name string, kind Kind, owner regionID) stateID {
	id, err := b.g.addState(name, kind, owner)
	b.setErr(err)
	return id
}

// State declares a simple top-level state
func (b *GraphBuilder) State(name string) *StateBuilder {
	return &StateBuilder{b: b, id: b.declare(name, KindSimple, rootRegion)}
}

// Final declares a top-level final state
func (b *GraphBuilder) Final(name string) *StateBuilder {
	return &StateBuilder{b: b, id: b.declare(name, KindFinal, rootRegion)}
}

// Composite declares a top-level composite state
func (b *GraphBuilder) Composite(name string) *CompositeBuilder {
	return newComposite(b, name, rootRegion)
}

// Orthogonal declares a top-level orthogonal state
func (b *GraphBuilder) Orthogonal(name string) *OrthogonalBuilder {
	return &OrthogonalBuilder{StateBuilder{b: b, id: b.declare(name, KindOrthogonal, rootRegion)}}
}

// Build resolves transition targets and history defaults, validates the
// graph and returns it. The builder must not be reused afterwards.
func (b *GraphBuilder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	for i := range b.pending {
		p := &b.pending[i]
		target := noState
		if p.kind != Internal {
			id, ok := b.g.lookup(p.target)
			if !ok {
				return nil, NewUnknownStateError(p.target)
			}
			target = id
		}
		b.g.addTransition(transition{
			source: p.source,
			target: target,
			event:  p.event,
			kind:   p.kind,
			guard:  p.guard,
			action: p.action,
		})
	}
	for _, d := range b.defs {
		id, ok := b.g.lookup(d.target)
		if !ok {
			return nil, NewUnknownStateError(d.target)
		}
		b.g.states[d.history].histDefault = id
	}
	if err := b.g.Validate(); err != nil {
		return nil, err
	}
	return b.g, nil
}

func newComposite(b *GraphBuilder, name string, owner regionID) *CompositeBuilder {
	id := b.declare(name, KindComposite, owner)
	cb := &CompositeBuilder{StateBuilder: StateBuilder{b: b, id: id}}
	if id != noState {
		cb.region = b.g.addRegion("", id)
	}
	return cb
}

// StateBuilder configures one declared state
type StateBuilder struct {
	b  *GraphBuilder
	id stateID
}

// Initial marks the state as the initial state of its region
func (sb *StateBuilder) Initial() *StateBuilder {
	if sb.id == noState {
		return sb
	}
	r := sb.b.g.region(sb.b.g.states[sb.id].owner)
	if r.initial != noState {
		sb.b.setErr(NewGraphError(sb.b.g.nameOf(sb.id), "region already has an initial state"))
		return sb
	}
	r.initial = sb.id
	return sb
}

// OnEntry sets the state's entry action
func (sb *StateBuilder) OnEntry(a Action) *StateBuilder {
	if sb.id != noState {
		sb.b.g.states[sb.id].entry = a
	}
	return sb
}

// OnEntryFunc sets the state's entry action from a plain function
func (sb *StateBuilder) OnEntryFunc(f func(ctx Context) error) *StateBuilder {
	return sb.OnEntry(ActionFunc(f))
}

// OnExit sets the state's exit action
func (sb *StateBuilder) OnExit(a Action) *StateBuilder {
	if sb.id != noState {
		sb.b.g.states[sb.id].exit = a
	}
	return sb
}

// OnExitFunc sets the state's exit action from a plain function
func (sb *StateBuilder) OnExitFunc(f func(ctx Context) error) *StateBuilder {
	return sb.OnExit(ActionFunc(f))
}

// To declares an external transition from this state to the named target
func (sb *StateBuilder) To(target string) *TransitionBuilder {
	return sb.addTransition(pendingTransition{source: sb.id, target: target, kind: External})
}

// ToLocal declares a local transition to a descendant of this state. The
// state itself is neither exited nor re-entered when it fires.
func (sb *StateBuilder) ToLocal(target string) *TransitionBuilder {
	return sb.addTransition(pendingTransition{source: sb.id, target: target, kind: Local})
}

// OnInternal declares an internal transition handling the event within this
// state, with no exit or entry
func (sb *StateBuilder) OnInternal(event string) *TransitionBuilder {
	return sb.addTransition(pendingTransition{source: sb.id, event: event, kind: Internal})
}

func (sb *StateBuilder) addTransition(p pendingTransition) *TransitionBuilder {
	if sb.id == noState {
		return &TransitionBuilder{}
	}
	sb.b.pending = append(sb.b.pending, p)
	return &TransitionBuilder{b: sb.b, idx: len(sb.b.pending) - 1}
}

// TransitionBuilder configures one declared transition
type TransitionBuilder struct {
	b   *GraphBuilder
	idx int
}

func (tb *TransitionBuilder) record() *pendingTransition {
	if tb.b == nil {
		return &pendingTransition{}
	}
	return &tb.b.pending[tb.idx]
}

// On sets the triggering event
func (tb *TransitionBuilder) On(event string) *TransitionBuilder {
	tb.record().event = event
	return tb
}

// When sets the transition guard
func (tb *TransitionBuilder) When(g Guard) *TransitionBuilder {
	tb.record().guard = g
	return tb
}

// WhenFunc sets the guard from a plain predicate
func (tb *TransitionBuilder) WhenFunc(f func(ctx Context) bool) *TransitionBuilder {
	return tb.When(GuardFunc(f))
}

// Do sets the transition action
func (tb *TransitionBuilder) Do(a Action) *TransitionBuilder {
	tb.record().action = a
	return tb
}

// DoFunc sets the transition action from a plain function
func (tb *TransitionBuilder) DoFunc(f func(ctx Context) error) *TransitionBuilder {
	return tb.Do(ActionFunc(f))
}

// CompositeBuilder configures a composite state and declares its children
type CompositeBuilder struct {
	StateBuilder
	region regionID
}

// State declares a simple child state
func (cb *CompositeBuilder) State(name string) *StateBuilder {
	return &StateBuilder{b: cb.b, id: cb.b.declare(name, KindSimple, cb.region)}
}

// Final declares a final child state. Entering it completes the composite
// and posts its completion event.
func (cb *CompositeBuilder) Final(name string) *StateBuilder {
	return &StateBuilder{b: cb.b, id: cb.b.declare(name, KindFinal, cb.region)}
}

// Composite declares a nested composite child
func (cb *CompositeBuilder) Composite(name string) *CompositeBuilder {
	return newComposite(cb.b, name, cb.region)
}

// Orthogonal declares a nested orthogonal child
func (cb *CompositeBuilder) Orthogonal(name string) *OrthogonalBuilder {
	return &OrthogonalBuilder{StateBuilder{b: cb.b, id: cb.b.declare(name, KindOrthogonal, cb.region)}}
}

// History declares a shallow history pseudostate for this composite
func (cb *CompositeBuilder) History(name string) *HistoryBuilder {
	return cb.history(name, HistoryShallow)
}

// DeepHistory declares a deep history pseudostate for this composite
func (cb *CompositeBuilder) DeepHistory(name string) *HistoryBuilder {
	return cb.history(name, HistoryDeep)
}

func (cb *CompositeBuilder) history(name string, mode HistoryMode) *HistoryBuilder {
	id := cb.b.declare(name, KindHistory, cb.region)
	if id != noState {
		cb.b.g.states[id].histMode = mode
	}
	return &HistoryBuilder{b: cb.b, id: id}
}

// HistoryBuilder configures a history pseudostate
type HistoryBuilder struct {
	b  *GraphBuilder
	id stateID
}

// Default names the sibling state entered when no history has been recorded
func (hb *HistoryBuilder) Default(target string) *HistoryBuilder {
	if hb.id != noState {
		hb.b.defs = append(hb.b.defs, pendingDefault{history: hb.id, target: target})
	}
	return hb
}

// OrthogonalBuilder configures an orthogonal state and declares its regions
type OrthogonalBuilder struct {
	StateBuilder
}

// Region declares a named region. Orthogonal states need at least two.
func (ob *OrthogonalBuilder) Region(name string) *RegionBuilder {
	if ob.id == noState {
		return &RegionBuilder{b: ob.b, region: rootRegion, inert: true}
	}
	return &RegionBuilder{b: ob.b, region: ob.b.g.addRegion(name, ob.id)}
}

// RegionBuilder declares the states of one orthogonal region
type RegionBuilder struct {
	b      *GraphBuilder
	region regionID
	inert  bool
}

// State declares a simple state in the region
func (rb *RegionBuilder) State(name string) *StateBuilder {
	if rb.inert {
		return &StateBuilder{b: rb.b, id: noState}
	}
	return &StateBuilder{b: rb.b, id: rb.b.declare(name, KindSimple, rb.region)}
}

// Final declares a final state in the region
func (rb *RegionBuilder) Final(name string) *StateBuilder {
	if rb.inert {
		return &StateBuilder{b: rb.b, id: noState}
	}
	return &StateBuilder{b: rb.b, id: rb.b.declare(name, KindFinal, rb.region)}
}

// Composite declares a composite state in the region
func (rb *RegionBuilder) Composite(name string) *CompositeBuilder {
	if rb.inert {
		return &CompositeBuilder{StateBuilder: StateBuilder{b: rb.b, id: noState}}
	}
	return newComposite(rb.b, name, rb.region)
}

// Orthogonal declares a nested orthogonal state in the region
func (rb *RegionBuilder) Orthogonal(name string) *OrthogonalBuilder {
	if rb.inert {
		return &OrthogonalBuilder{StateBuilder{b: rb.b, id: noState}}
	}
	return &OrthogonalBuilder{StateBuilder{b: rb.b, id: rb.b.declare(name, KindOrthogonal, rb.region)}}
}
