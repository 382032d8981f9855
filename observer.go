package strata

// Observer receives notifications about machine activity. All callbacks run
// synchronously inside the dispatch loop in registration order; a panicking
// observer is isolated and never disturbs the machine or other observers.
type Observer interface {
	// OnTransition is called after a transition's action has run and its
	// target has been entered. For internal transitions from and to name
	// the same state.
	OnTransition(from, to string, event Event, ctx Context)

	// OnStateEnter is called after a state becomes active and its entry
	// action has completed
	OnStateEnter(state string, ctx Context)
}

// ExtendedObserver receives the full notification set. Observers that only
// implement Observer miss nothing essential; the extended callbacks exist for
// tracing, testing and logging.
type ExtendedObserver interface {
	Observer

	// OnStateExit is called after a state's exit action has completed and
	// the state has been removed from the configuration
	OnStateExit(state string, ctx Context)

	// OnGuardEvaluation is called after each guard evaluation with its
	// outcome. Guards that error are reported as not passed.
	OnGuardEvaluation(from, to string, event Event, passed bool, ctx Context)

	// OnEventUnhandled is called when no transition in the active
	// configuration matched the event
	OnEventUnhandled(event Event, ctx Context)

	// OnError is called when a guard, action or timer fails
	OnError(err error, ctx Context)

	// OnMachineStarted is called after the initial configuration has been
	// entered
	OnMachineStarted(ctx Context)

	// OnMachineStopped is called after the active configuration has been
	// exited
	OnMachineStopped(ctx Context)
}

// BaseObserver provides no-op implementations of every callback. Embed it to
// implement only the notifications you care about.
type BaseObserver struct{}

func (BaseObserver) OnTransition(from, to string, event Event, ctx Context)                  {}
func (BaseObserver) OnStateEnter(state string, ctx Context)                                  {}
func (BaseObserver) OnStateExit(state string, ctx Context)                                   {}
func (BaseObserver) OnGuardEvaluation(from, to string, event Event, passed bool, ctx Context) {}
func (BaseObserver) OnEventUnhandled(event Event, ctx Context)                               {}
func (BaseObserver) OnError(err error, ctx Context)                                          {}
func (BaseObserver) OnMachineStarted(ctx Context)                                            {}
func (BaseObserver) OnMachineStopped(ctx Context)                                            {}

// observerManager fans notifications out to registered observers. Each
// callback is wrapped in a recover so observer panics cannot corrupt a
// dispatch in progress.
type observerManager struct {
	observers []Observer
}

func newObserverManager() *observerManager {
	return &observerManager{}
}

func (om *observerManager) add(o Observer) {
	if o != nil {
		om.observers = append(om.observers, o)
	}
}

func (om *observerManager) remove(o Observer) {
	for i, existing := range om.observers {
		if existing == o {
			om.observers = append(om.observers[:i], om.observers[i+1:]...)
			return
		}
	}
}

func safeNotify(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}

func (om *observerManager) notifyTransition(from, to string, event Event, ctx Context) {
	for _, o := range om.observers {
		o := o
		safeNotify(func() { o.OnTransition(from, to, event, ctx) })
	}
}

func (om *observerManager) notifyStateEnter(state string, ctx Context) {
	for _, o := range om.observers {
		o := o
		safeNotify(func() { o.OnStateEnter(state, ctx) })
	}
}

func (om *observerManager) notifyStateExit(state string, ctx Context) {
	for _, o := range om.observers {
		if ext, ok := o.(ExtendedObserver); ok {
			ext := ext
			safeNotify(func() { ext.OnStateExit(state, ctx) })
		}
	}
}

func (om *observerManager) notifyGuardEvaluation(from, to string, event Event, passed bool, ctx Context) {
	for _, o := range om.observers {
		if ext, ok := o.(ExtendedObserver); ok {
			ext := ext
			safeNotify(func() { ext.OnGuardEvaluation(from, to, event, passed, ctx) })
		}
	}
}

func (om *observerManager) notifyEventUnhandled(event Event, ctx Context) {
	for _, o := range om.observers {
		if ext, ok := o.(ExtendedObserver); ok {
			ext := ext
			safeNotify(func() { ext.OnEventUnhandled(event, ctx) })
		}
	}
}

func (om *observerManager) notifyError(err error, ctx Context) {
	for _, o := range om.observers {
		if ext, ok := o.(ExtendedObserver); ok {
			ext := ext
			safeNotify(func() { ext.OnError(err, ctx) })
		}
	}
}

func (om *observerManager) notifyMachineStarted(ctx Context) {
	for _, o := range om.observers {
		if ext, ok := o.(ExtendedObserver); ok {
			ext := ext
			safeNotify(func() { ext.OnMachineStarted(ctx) })
		}
	}
}

func (om *observerManager) notifyMachineStopped(ctx Context) {
	for _, o := range om.observers {
		if ext, ok := o.(ExtendedObserver); ok {
			ext := ext
			safeNotify(func() { ext.OnMachineStopped(ctx) })
		}
	}
}
