package strata

import "fmt"

// TransitionKind distinguishes how a transition treats its source state
type TransitionKind int

const (
	// External transitions exit the source (and everything below the
	// lowest common ancestor of source and target) before entering the
	// target path. A self-transition of this kind exits and re-enters.
	External TransitionKind = iota
	// Internal transitions run only their action; the active
	// configuration is untouched and no entry/exit hooks fire.
	Internal
	// Local transitions target a descendant of the source without
	// exiting the source itself.
	Local
)

func (k TransitionKind) String() string {
	switch k {
	case Internal:
		return "internal"
	case Local:
		return "local"
	default:
		return "external"
	}
}

// Guard decides whether a transition is eligible. Guards must be free of
// side effects; the resolver evaluates them fresh on every dispatch and
// never caches a result across events.
type Guard interface {
	Evaluate(ctx Context) (bool, error)
}

// GuardFunc adapts a plain predicate to the Guard interface
type GuardFunc func(ctx Context) bool

// Evaluate implements Guard
func (f GuardFunc) Evaluate(ctx Context) (bool, error) {
	return f(ctx), nil
}

// Action performs work during a transition or on state entry/exit. Actions
// run synchronously inside the dispatch loop and must not block; long work
// belongs outside the core, fed back in via posted events.
type Action interface {
	Execute(ctx Context) error
}

// ActionFunc adapts a plain function to the Action interface
type ActionFunc func(ctx Context) error

// Execute implements Action
func (f ActionFunc) Execute(ctx Context) error {
	return f(ctx)
}

// transition is the compiled, arena-resident form of an authored transition.
// Source and target are arena indices; target is noState for internal
// transitions.
type transition struct {
	id     int
	source stateID
	target stateID
	event  string
	kind   TransitionKind
	guard  Guard
	action Action
}

// TransitionInfo is the read-only description of a compiled transition,
// exposed for introspection and visualization
type TransitionInfo struct {
	Source  string
	Target  string
	Event   string
	Kind    TransitionKind
	Guarded bool
}

func (ti TransitionInfo) String() string {
	if ti.Kind == Internal {
		return fmt.Sprintf("%s on %s (internal)", ti.Source, ti.Event)
	}
	return fmt.Sprintf("%s -> %s on %s", ti.Source, ti.Target, ti.Event)
}
