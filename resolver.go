package strata

// firing is one planned transition execution. The resolver produces firings
// without touching the configuration; the machine commits them step by step.
type firing struct {
	t      *transition
	source stateID
	// domain is the state bounding the exit/entry scope; noState means the
	// scope is a whole top-level branch
	domain stateID
	// exits lists the active states to leave, innermost first
	exits []stateID
	// enters lists the states to enter down to the transition target,
	// outermost first. Descent below the target (initial defaults or a
	// restored history configuration) is decided at commit time, after the
	// exits have updated the history records.
	enters []stateID
	// history is the history pseudostate the transition targeted, or
	// noState
	history stateID
}

// resolve selects the transitions to fire for one event against the current
// configuration. Selection walks each active leaf toward the root and stops
// at the first state owning an eligible transition, so a child's transition
// always shadows an ancestor's. More than one eligible transition on the same
// state is an authoring error and aborts the dispatch.
//
// Across orthogonal regions, firings whose exit scopes overlap are resolved
// in favor of the deeper source; between unrelated sources the earlier
// declared wins, unless strict mode turns the overlap into an error.
func resolve(g *Graph, cfg *configuration, ev Event, ctx Context, strict bool, om *observerManager) ([]firing, error) {
	// outcome memoizes per-state selection across leaf walks: the chosen
	// transition id, or -1 when the state matched nothing
	outcome := make(map[stateID]int)
	selected := make(map[int]bool)
	var candidates []firing

	for _, leaf := range cfg.leaves(g) {
		for s := leaf; s != noState; s = g.states[s].parent {
			if tid, seen := outcome[s]; seen {
				if tid >= 0 {
					break
				}
				continue
			}
			tid, err := eligibleAt(g, s, ev, ctx, om)
			if err != nil {
				return nil, err
			}
			outcome[s] = tid
			if tid < 0 {
				continue
			}
			if !selected[tid] {
				selected[tid] = true
				candidates = append(candidates, firing{t: &g.transitions[tid], source: s, history: noState})
			}
			break
		}
	}

	var plan []firing
	for i := range candidates {
		f := candidates[i]
		buildScope(g, cfg, &f)
		kept, err := admit(g, ev, plan, f, strict)
		if err != nil {
			return nil, err
		}
		plan = kept
	}
	return plan, nil
}

// eligibleAt returns the id of the single eligible transition on state s for
// the event, -1 when none matches, or an error on a guard failure or an
// ambiguous tie.
func eligibleAt(g *Graph, s stateID, ev Event, ctx Context, om *observerManager) (int, error) {
	st := &g.states[s]
	eligible := -1
	var ties []string
	for _, tid := range st.transitions {
		t := &g.transitions[tid]
		if t.event != ev.Name {
			continue
		}
		if t.guard != nil {
			passed, err := safeEvaluateGuard(t.guard, ctx)
			om.notifyGuardEvaluation(st.name, g.nameOf(t.target), ev, passed && err == nil, ctx)
			if err != nil {
				return -1, NewGuardError(st.name, ev.Name, err)
			}
			if !passed {
				continue
			}
		}
		if eligible < 0 {
			eligible = tid
			ties = append(ties, g.describeTransition(t))
		} else {
			ties = append(ties, g.describeTransition(t))
		}
	}
	if len(ties) > 1 {
		return -1, NewAmbiguousTransitionError(st.name, ev.Name, ties)
	}
	return eligible, nil
}

// buildScope fills in domain, exits and enters for a candidate firing
func buildScope(g *Graph, cfg *configuration, f *firing) {
	if f.t.kind == Internal {
		f.domain = f.source
		return
	}
	entryTarget := f.t.target
	if g.states[entryTarget].kind == KindHistory {
		f.history = entryTarget
		entryTarget = g.states[entryTarget].parent
	}

	domain := g.lca(f.source, entryTarget)
	if f.t.kind == External && domain != noState && (domain == f.source || domain == entryTarget) {
		domain = g.states[domain].parent
	}
	f.domain = domain

	if domain == noState {
		f.exits = cfg.subtree(g, g.topAncestor(f.source))
	} else {
		// only the region leading to the target is vacated; sibling
		// regions of an orthogonal domain stay untouched
		scope := g.regionToward(domain, entryTarget)
		if child, ok := cfg.childOf(scope); ok {
			f.exits = cfg.subtree(g, child)
		}
	}

	path := g.pathTo(entryTarget)
	if domain != noState {
		for i, s := range path {
			if s == domain {
				path = path[i+1:]
				break
			}
		}
	}
	f.enters = path
}

// admit applies the conflict rules to a new firing against the accepted plan.
// An overlapping firing with a deeper source preempts the shallower one;
// otherwise the earlier firing wins, or strict mode raises an error.
func admit(g *Graph, ev Event, plan []firing, f firing, strict bool) ([]firing, error) {
	preempted := make(map[int]bool)
	for i := range plan {
		if !overlaps(plan[i].exits, f.exits) {
			continue
		}
		if strict {
			return nil, NewRegionConflictError(
				g.nameOf(f.source), ev.Name,
				[]string{g.describeTransition(plan[i].t), g.describeTransition(f.t)},
			)
		}
		if g.isAncestor(plan[i].source, f.source) {
			preempted[i] = true
			continue
		}
		return plan, nil
	}
	if len(preempted) == 0 {
		return append(plan, f), nil
	}
	kept := plan[:0]
	for i := range plan {
		if !preempted[i] {
			kept = append(kept, plan[i])
		}
	}
	return append(kept, f), nil
}

func overlaps(a, b []stateID) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[stateID]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if set[s] {
			return true
		}
	}
	return false
}
