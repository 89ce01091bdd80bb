package tree

import "strings"

// CallbackSpec is an unresolved reference to a callback: a symbolic name, a
// direct callable, or a property thunk. The tree package never resolves
// these — internal/callback.Registry does, against lookup objects supplied
// at engine construction time. Keeping tree ignorant of resolution keeps the
// definition layer free of reflection and free of any dependency on the
// registry.
type CallbackSpec = any

// GuardSpec is either a compiled guard.Predicate-shaped func(map[string]any)
// bool, a raw boolean-expression string (parsed and resolved when the engine
// compiles the machine, not by Builder), any other callable (adapted and its
// result coerced to bool), or nil (always-true).
type GuardSpec = any

// Transition is a single outgoing edge from State.Source.
type Transition struct {
	Source *State
	// Target is nil for an internal self-transition with no state change, or
	// when TargetHistory is set (the transition targets a history
	// pseudo-state rather than a real state).
	Target *State
	// TargetHistory is set instead of Target when this transition's target
	// is a history pseudo-state; the engine resolves the actual entry set
	// from recorded history values or the history's default transition.
	TargetHistory *History

	// Events is the ordered set of event-name patterns this transition
	// matches against. Empty means eventless (enabled whenever Guard holds).
	Events []string

	Guard GuardSpec

	Validators []CallbackSpec
	Before     []CallbackSpec
	On         []CallbackSpec
	After      []CallbackSpec

	// Internal marks a same-state transition that performs no exit/entry of
	// Source unless the engine is configured with SelfTransitionEntries.
	Internal bool

	// Initial marks the synthetic transition that enters a compound state's
	// initial child; it is never matched against a real trigger.
	Initial bool

	Weight int

	// DocOrder totally orders all transitions in the tree by the order they
	// were declared, used as the final conflict-resolution tie-breaker.
	DocOrder int
}

// IsEventless reports whether the transition has no event pattern (i.e. it
// fires whenever its guard holds, independent of any trigger).
func (t *Transition) IsEventless() bool {
	return len(t.Events) == 0
}

// IsSelf reports whether this transition's target is its own source.
func (t *Transition) IsSelf() bool {
	return t.Target == t.Source
}

// Matches reports whether eventType satisfies one of the transition's event
// patterns: exact match, or prefix-with-dot-boundary (e.g. "error.execution"
// matches patterns "error", "error.execution", "error.execution.*").
func (t *Transition) Matches(eventType string) bool {
	for _, pattern := range t.Events {
		if eventMatches(pattern, eventType) {
			return true
		}
	}
	return false
}

func eventMatches(pattern, eventType string) bool {
	pattern = strings.TrimSuffix(pattern, ".*")
	if pattern == eventType {
		return true
	}
	return strings.HasPrefix(eventType, pattern+".")
}
