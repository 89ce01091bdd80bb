package engine

import (
	"sort"

	"github.com/comalice/hsm/internal/callback"
	"github.com/comalice/hsm/internal/equeue"
	"github.com/comalice/hsm/internal/orderedset"
	"github.com/comalice/hsm/internal/tree"
)

// selectEventless returns the conflict-resolved eventless transitions
// enabled in the current configuration (spec.md §4.7.1, null trigger).
func (m *Machine) selectEventless() []*tree.Transition {
	return m.filterConflicting(m.selectCandidates(nil, true))
}

// selectForTrigger returns the conflict-resolved transitions enabled by
// trig (spec.md §4.7.1).
func (m *Machine) selectForTrigger(trig *equeue.Trigger) []*tree.Transition {
	return m.filterConflicting(m.selectCandidates(trig, false))
}

// selectCandidates walks every active leaf state up through its ancestors,
// taking the first transition per leaf whose event pattern matches (or,
// for eventless selection, whose event set is empty) and whose validators
// and guard both pass. The same transition reached independently by two
// leaves in different parallel regions is only added once.
func (m *Machine) selectCandidates(trig *equeue.Trigger, eventless bool) []*tree.Transition {
	var candidates []*tree.Transition
	added := map[*tree.Transition]bool{}

	for _, leaf := range m.leafStatesInDocOrder() {
	ancestorWalk:
		for _, anc := range leaf.Ancestors() {
			for _, t := range anc.Transitions {
				if t.Initial {
					continue
				}
				if eventless {
					if !t.IsEventless() {
						continue
					}
				} else {
					if t.IsEventless() || !t.Matches(trig.EventType) {
						continue
					}
				}

				ctx := m.selectionContext(t, trig)
				if m.prepare != nil {
					if err := m.prepare.CallAll(ctx); err != nil {
						m.logger.Printf("hsm: prepare error on candidate transition from %q: %v", anc.ID, err)
						continue
					}
				}
				rt := m.transitionMeta[t]
				if rt.validators != nil {
					if err := rt.validators.CallAll(ctx); err != nil {
						m.logger.Printf("hsm: validator rejected candidate transition from %q: %v", anc.ID, err)
						continue
					}
				}
				ok, err := rt.guard(ctx)
				if err != nil {
					m.logger.Printf("hsm: guard error on candidate transition from %q: %v", anc.ID, err)
					continue
				}
				if !ok {
					continue
				}

				if !added[t] {
					added[t] = true
					candidates = append(candidates, t)
				}
				break ancestorWalk
			}
		}
	}
	return candidates
}

func (m *Machine) selectionContext(t *tree.Transition, trig *equeue.Trigger) *callback.Context {
	ctx := &callback.Context{Source: t.Source.ID, Model: m.model, Transition: t}
	if t.Target != nil {
		ctx.Target = t.Target.ID
	}
	if trig != nil {
		ctx.EventType = trig.EventType
		ctx.Args = trig.Args
		ctx.Kwargs = trig.Kwargs
		ctx.SendID = trig.SendID
		ctx.EventData = trig.Data
	}
	return ctx
}

// filterConflicting resolves conflicts among candidates whose exit sets
// intersect: the transition whose source is a descendant of the other's
// source wins (inner wins); otherwise the one with the lower document
// order wins (spec.md §4.7.1 step 3).
func (m *Machine) filterConflicting(candidates []*tree.Transition) []*tree.Transition {
	if len(candidates) <= 1 {
		return candidates
	}

	type entry struct {
		t    *tree.Transition
		exit *orderedset.Set[*tree.State]
	}
	entries := make([]entry, len(candidates))
	for i, t := range candidates {
		entries[i] = entry{t: t, exit: m.computeExitSet(t)}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].t.DocOrder < entries[j].t.DocOrder })

	var kept []entry
	for _, c := range entries {
		conflictAt := -1
		for i, k := range kept {
			if c.exit.Intersects(k.exit) {
				conflictAt = i
				break
			}
		}
		if conflictAt == -1 {
			kept = append(kept, c)
			continue
		}
		k := kept[conflictAt]
		if c.t.Source.IsDescendant(k.t.Source) {
			kept[conflictAt] = c
		}
		// else: k already wins (either it is the descendant, or neither is
		// a descendant of the other and k was selected first by document
		// order).
	}

	out := make([]*tree.Transition, len(kept))
	for i, k := range kept {
		out[i] = k.t
	}
	return out
}
