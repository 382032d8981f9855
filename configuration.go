package strata

import "sort"

// configuration is the mutable active-state set of one machine. It maps each
// region to its active child, which by construction keeps exactly one state
// per non-empty region: activate and deactivate are the only writers and both
// maintain the pairing between the two indexes.
type configuration struct {
	active    map[regionID]stateID
	activeSet map[stateID]bool
}

func newConfiguration() *configuration {
	return &configuration{
		active:    make(map[regionID]stateID),
		activeSet: make(map[stateID]bool),
	}
}

func (c *configuration) activate(g *Graph, s stateID) {
	c.active[g.states[s].owner] = s
	c.activeSet[s] = true
}

func (c *configuration) deactivate(g *Graph, s stateID) {
	if c.active[g.states[s].owner] == s {
		delete(c.active, g.states[s].owner)
	}
	delete(c.activeSet, s)
}

func (c *configuration) isActive(s stateID) bool {
	return c.activeSet[s]
}

func (c *configuration) childOf(r regionID) (stateID, bool) {
	s, ok := c.active[r]
	return s, ok
}

func (c *configuration) clear() {
	c.active = make(map[regionID]stateID)
	c.activeSet = make(map[stateID]bool)
}

func (c *configuration) empty() bool {
	return len(c.activeSet) == 0
}

// leaves returns the active states that have no active descendant, in
// declaration order
func (c *configuration) leaves(g *Graph) []stateID {
	var out []stateID
	for s := range c.activeSet {
		leaf := true
		for _, r := range g.states[s].regions {
			if _, ok := c.active[r]; ok {
				leaf = false
				break
			}
		}
		if leaf {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// states returns every active state in declaration order
func (c *configuration) states() []stateID {
	out := make([]stateID, 0, len(c.activeSet))
	for s := range c.activeSet {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// names returns every active state name in declaration order
func (c *configuration) names(g *Graph) []string {
	ids := c.states()
	out := make([]string, len(ids))
	for i, s := range ids {
		out[i] = g.nameOf(s)
	}
	return out
}

// subtree returns the active states at or below root, deepest first, regions
// visited in declaration order. This is the exit order for any transition
// whose scope is root.
func (c *configuration) subtree(g *Graph, root stateID) []stateID {
	var out []stateID
	var walk func(s stateID)
	walk = func(s stateID) {
		for _, r := range g.states[s].regions {
			if child, ok := c.active[r]; ok {
				walk(child)
			}
		}
		out = append(out, s)
	}
	if c.isActive(root) {
		walk(root)
	}
	return out
}
