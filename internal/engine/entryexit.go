package engine

import (
	"github.com/comalice/hsm/internal/orderedset"
	"github.com/comalice/hsm/internal/tree"
)

// effectiveTargets resolves t's target(s), substituting a history
// pseudo-state target by its recorded value (if any history has been
// recorded) or its default transition's effective targets, recursively.
// Returns nil for an internal transition with no target at all (no state
// change).
func (m *Machine) effectiveTargets(t *tree.Transition) []*tree.State {
	if t.Target == nil && t.TargetHistory == nil {
		return nil
	}
	if t.TargetHistory != nil {
		h := t.TargetHistory
		if recorded, ok := m.historyValues[h.ID]; ok && recorded.Len() > 0 {
			return append([]*tree.State(nil), recorded.Items()...)
		}
		if h.Default != nil {
			return m.effectiveTargets(h.Default)
		}
		return nil
	}
	return []*tree.State{t.Target}
}

// transitionDomain computes the smallest compound (or parallel) state that
// bounds t's exit/entry computation (spec.md §4.7.2). Returns nil when t
// has no effective target (a no-op internal transition).
func (m *Machine) transitionDomain(t *tree.Transition) *tree.State {
	targets := m.effectiveTargets(t)
	if len(targets) == 0 {
		return nil
	}
	if t.Internal && isCompoundLike(t.Source) && allDescendantsOrSelf(targets, t.Source) {
		return t.Source
	}
	all := make([]*tree.State, 0, len(targets)+1)
	all = append(all, t.Source)
	all = append(all, targets...)
	return findLCCA(all)
}

// computeExitSet returns every currently active state that is a strict
// descendant of t's transition domain, in no particular order (callers
// sort by DocOrder — descending for actual exit execution).
func (m *Machine) computeExitSet(t *tree.Transition) *orderedset.Set[*tree.State] {
	out := orderedset.New[*tree.State]()
	domain := m.transitionDomain(t)
	if domain == nil {
		return out
	}
	for _, s := range m.config.Items() {
		if s.IsDescendant(domain) {
			out.Add(s)
		}
	}
	return out
}

// computeEntrySet returns every state that must become active as a result
// of t firing: t's effective targets, their descendants down to a leaf
// (recursing through compound default-initial children and fanning out
// across every region of a parallel state), and their ancestors up to
// (excluding) the transition domain (fanning out sibling regions of any
// parallel ancestor along the way). Grounded on the SCXML
// addDescendantStatesToEnter/addAncestorStatesToEnter algorithm as
// implemented in the source's engines/base.py.
func (m *Machine) computeEntrySet(t *tree.Transition) *orderedset.Set[*tree.State] {
	out := orderedset.New[*tree.State]()
	domain := m.transitionDomain(t)
	if domain == nil {
		return out
	}
	targets := m.effectiveTargets(t)
	for _, target := range targets {
		m.addDescendantStatesToEnter(target, out)
	}
	for _, target := range targets {
		m.addAncestorStatesToEnter(target, domain, out)
	}
	return out
}

func (m *Machine) addDescendantStatesToEnter(s *tree.State, out *orderedset.Set[*tree.State]) {
	out.Add(s)
	switch {
	case s.IsCompound():
		child := s.Initial
		if child != nil {
			m.addDescendantStatesToEnter(child, out)
			m.addAncestorStatesToEnter(child, s, out)
		}
	case s.IsParallel():
		for _, region := range s.Children {
			if !anyDescendantIn(region, out) {
				m.addDescendantStatesToEnter(region, out)
			}
		}
	}
}

func (m *Machine) addAncestorStatesToEnter(s, bound *tree.State, out *orderedset.Set[*tree.State]) {
	chain := s.AncestorsUpTo(bound)
	for _, anc := range chain {
		if anc == s {
			continue
		}
		out.Add(anc)
		if anc.IsParallel() {
			for _, region := range anc.Children {
				if !anyDescendantIn(region, out) {
					m.addDescendantStatesToEnter(region, out)
				}
			}
		}
	}
}

func anyDescendantIn(region *tree.State, out *orderedset.Set[*tree.State]) bool {
	for _, s := range out.Items() {
		if s == region || s.IsDescendant(region) {
			return true
		}
	}
	return false
}

// isCompoundLike reports whether s can bound a transition domain on its
// own (compound or parallel; the synthetic root is built as Compound).
func isCompoundLike(s *tree.State) bool {
	return s.IsCompound() || s.IsParallel()
}

func allDescendantsOrSelf(states []*tree.State, ancestor *tree.State) bool {
	for _, s := range states {
		if s != ancestor && !s.IsDescendant(ancestor) {
			return false
		}
	}
	return true
}

// properCompoundAncestors returns every compound/parallel ancestor strictly
// above s (s itself excluded), innermost first.
func properCompoundAncestors(s *tree.State) []*tree.State {
	var out []*tree.State
	for cur := s.Parent; cur != nil; cur = cur.Parent {
		if isCompoundLike(cur) {
			out = append(out, cur)
		}
	}
	return out
}

// findLCCA returns the least common compound ancestor of states: the
// smallest compound/parallel state, strictly above states[0], that is an
// ancestor of (or equal to) every other member.
func findLCCA(states []*tree.State) *tree.State {
	if len(states) == 0 {
		return nil
	}
	for _, anc := range properCompoundAncestors(states[0]) {
		allUnder := true
		for _, s := range states[1:] {
			if s == anc || s.IsDescendant(anc) {
				continue
			}
			allUnder = false
			break
		}
		if allUnder {
			return anc
		}
	}
	return nil
}

// recordHistory updates the recorded history value of every history
// pseudo-state attached to s, using snapshot (the configuration as it was
// immediately before this microstep's exits began) — per spec.md §9's
// resolved Open Question, history is written on exit of the enclosing
// compound, not on exit of every descendant.
func (m *Machine) recordHistory(s *tree.State, snapshot *orderedset.Set[*tree.State]) {
	for _, h := range s.Histories {
		recorded := orderedset.New[*tree.State]()
		if h.Kind == tree.Shallow {
			for _, child := range s.Children {
				if snapshot.Contains(child) {
					recorded.Add(child)
				}
			}
		} else {
			for _, st := range snapshot.Items() {
				if len(st.Children) == 0 && st.IsDescendant(s) {
					recorded.Add(st)
				}
			}
		}
		m.historyValues[h.ID] = recorded
	}
}

func (m *Machine) cloneHistory() map[tree.StateID]*orderedset.Set[*tree.State] {
	out := make(map[tree.StateID]*orderedset.Set[*tree.State], len(m.historyValues))
	for k, v := range m.historyValues {
		out[k] = v.Clone()
	}
	return out
}
