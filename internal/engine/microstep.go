package engine

import (
	"sort"

	"github.com/comalice/hsm/internal/callback"
	"github.com/comalice/hsm/internal/equeue"
	"github.com/comalice/hsm/internal/tree"
)

// microstepError distinguishes errors raised by an after-callback, which
// run only once the configuration change is already committed and so must
// not trigger rollback (spec.md §7's documented exception), from every
// earlier-phase error, which must.
type microstepError struct {
	err      error
	rollback bool
}

func (e *microstepError) Error() string { return e.err.Error() }
func (e *microstepError) Unwrap() error { return e.err }

// microstep fires every transition in ts (already conflict-resolved) as a
// single atomic step: before -> exit (reverse doc order, recording history
// of each exited compound) -> on -> [config update] -> enter (doc order,
// emitting done-state events as final states are entered) -> after. Per spec.md §4.7.3, ts may
// be empty only for an internal-target no-op, which this function never
// receives (callers only invoke it for a non-empty selection).
//
// Returns the first non-nil result produced by any "on" callback (the value
// propagated back to Send's caller) and an error, which is a *microstepError
// when rollback semantics matter.
func (m *Machine) microstep(ts []*tree.Transition, trig *equeue.Trigger) (any, error) {
	preSnapshot := m.config.Clone()
	preHistory := m.cloneHistory()

	rollback := func() {
		m.config = preSnapshot
		m.historyValues = preHistory
	}

	exitSets := make(map[*tree.Transition][]*tree.State, len(ts))
	entrySets := make(map[*tree.Transition][]*tree.State, len(ts))
	for _, t := range ts {
		exit := m.computeExitSet(t).Items()
		sort.Slice(exit, func(i, j int) bool { return exit[i].DocOrder > exit[j].DocOrder })
		exitSets[t] = exit

		entry := m.computeEntrySet(t).Items()
		sort.Slice(entry, func(i, j int) bool { return entry[i].DocOrder < entry[j].DocOrder })
		entrySets[t] = entry
	}

	ctxFor := func(t *tree.Transition, state tree.StateID) *callback.Context {
		ctx := m.selectionContext(t, trig)
		ctx.State = state
		return ctx
	}

	for _, t := range ts {
		rt := m.transitionMeta[t]
		if rt.before == nil {
			continue
		}
		if err := rt.before.CallAll(ctxFor(t, t.Source.ID)); err != nil {
			rollback()
			return nil, &microstepError{err: err, rollback: true}
		}
	}

	for _, t := range ts {
		for _, s := range exitSets[t] {
			if !m.config.Contains(s) {
				continue
			}
			if s.IsCompound() || s.IsParallel() {
				m.recordHistory(s, preSnapshot)
			}
			if sr := m.stateMeta[s]; sr != nil && sr.exit != nil {
				if err := sr.exit.CallAll(ctxFor(t, s.ID)); err != nil {
					rollback()
					return nil, &microstepError{err: err, rollback: true}
				}
			}
			m.config.Discard(s)
		}
	}

	var firstResult any
	haveResult := false
	for _, t := range ts {
		rt := m.transitionMeta[t]
		if rt.on == nil {
			continue
		}
		results, err := rt.on.CallAllCollect(ctxFor(t, t.Source.ID))
		if err != nil {
			rollback()
			return nil, &microstepError{err: err, rollback: true}
		}
		for _, r := range results {
			if r != nil && !haveResult {
				firstResult, haveResult = r, true
			}
		}
	}

	for _, t := range ts {
		for _, s := range entrySets[t] {
			m.config.Add(s)
			if sr := m.stateMeta[s]; sr != nil && sr.enter != nil {
				if err := sr.enter.CallAll(ctxFor(t, s.ID)); err != nil {
					rollback()
					return nil, &microstepError{err: err, rollback: true}
				}
			}
			if s.IsFinal() {
				m.maybeEmitDone(s, ctxFor(t, s.ID))
			}
		}
	}

	for _, t := range ts {
		rt := m.transitionMeta[t]
		if rt.after == nil {
			continue
		}
		if err := rt.after.CallAll(ctxFor(t, t.Source.ID)); err != nil {
			// After-callback errors never roll back: the configuration
			// change they are reacting to is already committed.
			return firstResult, &microstepError{err: err, rollback: false}
		}
	}

	return firstResult, nil
}

// maybeEmitDone enqueues done.state.<parent_id> when entering final state s
// completes its parent: a compound parent is done as soon as s is entered,
// and its done event carries s's donedata; a parallel grandparent is done
// only once every one of its regions has independently reached a final
// state (spec.md §4.7.3's parallel special case). A final state that is
// itself a region of a parallel parent is checked against that parent.
func (m *Machine) maybeEmitDone(s *tree.State, ctx *callback.Context) {
	parent := s.Parent
	if parent == nil {
		return
	}
	if parent.IsParallel() {
		if m.allRegionsDone(parent) {
			m.emitDone(parent, nil)
		}
		return
	}
	if parent.IsCompound() {
		var data any
		if s.DoneData != nil {
			data = s.DoneData(ctx.KwargsOrEmpty())
		}
		m.emitDone(parent, data)
	}
	if grand := parent.Parent; grand != nil && grand.IsParallel() {
		if m.allRegionsDone(grand) {
			m.emitDone(grand, nil)
		}
	}
}

func (m *Machine) allRegionsDone(parallel *tree.State) bool {
	for _, region := range parallel.Children {
		if !m.regionReachedFinal(region) {
			return false
		}
	}
	return true
}

func (m *Machine) regionReachedFinal(region *tree.State) bool {
	for _, s := range m.config.Items() {
		if s.IsFinal() && (s == region || s.IsDescendant(region)) {
			return true
		}
	}
	return false
}

func (m *Machine) emitDone(parent *tree.State, data any) {
	m.internal.Put(equeue.Trigger{
		EventType: "done.state." + string(parent.ID),
		Data:      data,
		Internal:  true,
	})
	if parent == m.root {
		m.terminated = true
	}
}
