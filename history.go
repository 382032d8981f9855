package strata

// historyRecord captures what was active inside one composite at the moment
// it was exited. The shallow slot is enough for HistoryShallow; leaves carry
// the full deep configuration.
type historyRecord struct {
	shallow stateID
	leaves  []stateID
}

// historyTracker keeps per-composite history records for one machine. Records
// are written just before a composite is exited, using the configuration as
// it stood at that moment, and survive until the machine is restarted.
type historyTracker struct {
	records map[stateID]historyRecord
}

func newHistoryTracker() *historyTracker {
	return &historyTracker{records: make(map[stateID]historyRecord)}
}

// record snapshots the active configuration under composite s. It is a no-op
// unless s declares a history pseudostate.
func (h *historyTracker) record(g *Graph, cfg *configuration, s stateID) {
	if g.historyChild(s) == noState {
		return
	}
	rec := historyRecord{shallow: noState}
	if child, ok := cfg.childOf(g.states[s].regions[0]); ok {
		rec.shallow = child
	}
	for _, active := range cfg.subtree(g, s) {
		if active == s {
			continue
		}
		leaf := true
		for _, r := range g.states[active].regions {
			if _, ok := cfg.childOf(r); ok {
				leaf = false
				break
			}
		}
		if leaf {
			rec.leaves = append(rec.leaves, active)
		}
	}
	h.records[s] = rec
}

// lookup returns the record for composite s
func (h *historyTracker) lookup(s stateID) (historyRecord, bool) {
	rec, ok := h.records[s]
	return rec, ok
}

func (h *historyTracker) clear() {
	h.records = make(map[stateID]historyRecord)
}
