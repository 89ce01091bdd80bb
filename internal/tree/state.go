// Package tree implements the immutable statechart definition: states,
// transitions, initial markers and event bindings, built once via Builder
// and never mutated afterward. Runtime state (the active configuration,
// history values, queues) lives in internal/engine, not here.
package tree

import "fmt"

// StateID uniquely identifies a state within a StateTree.
type StateID string

// Kind is the mutually-exclusive category a State belongs to.
type Kind int

const (
	Atomic Kind = iota
	Compound
	Parallel
	Final
)

func (k Kind) String() string {
	switch k {
	case Atomic:
		return "atomic"
	case Compound:
		return "compound"
	case Parallel:
		return "parallel"
	case Final:
		return "final"
	default:
		return "unknown"
	}
}

// HistoryKind distinguishes shallow from deep history pseudo-states.
type HistoryKind int

const (
	Shallow HistoryKind = iota
	Deep
)

// DoneDataFunc produces the payload attached to a final state's completion
// event (done.state.<parent>) at the moment the final state is entered.
type DoneDataFunc func(kwargs map[string]any) any

// State is a node in the statechart hierarchy. Built once by Builder and
// never mutated after Build returns.
type State struct {
	ID    StateID
	Name  string
	Value string // user-visible value; defaults to ID
	Kind  Kind

	Parent   *State
	Children []*State // document order
	Initial  *State   // the child marked/implied initial (nil for atomic/final)

	Histories []*History // history pseudo-states attached to this (compound) state

	Transitions []*Transition // outgoing, document order

	Enter []CallbackSpec
	Exit  []CallbackSpec

	DoneData DoneDataFunc

	// DocOrder is assigned at build time via a pre-order walk of the whole
	// tree; it totally orders states for conflict-resolution tie-breaking
	// and for entry/exit ordering.
	DocOrder int

	// Path is the dot-joined ancestor chain from the root to this state,
	// e.g. "outer.a". Root states have Path == string(ID).
	Path string
}

// History is a shallow/deep history pseudo-state attached to a compound
// state.
type History struct {
	ID      StateID
	Kind    HistoryKind
	Parent  *State        // the compound state this history belongs to
	Default *Transition    // synthetic transition to the default target(s) when no history is recorded
	DocOrder int
}

// IsAtomic, IsCompound, IsParallel, IsFinal are convenience predicates.
func (s *State) IsAtomic() bool   { return s.Kind == Atomic }
func (s *State) IsCompound() bool { return s.Kind == Compound }
func (s *State) IsParallel() bool { return s.Kind == Parallel }
func (s *State) IsFinal() bool    { return s.Kind == Final }

// IsDescendant reports whether s is a (possibly indirect) descendant of
// other. A state is not its own descendant.
func (s *State) IsDescendant(other *State) bool {
	for cur := s.Parent; cur != nil; cur = cur.Parent {
		if cur == other {
			return true
		}
	}
	return false
}

// IsAncestorOf reports whether s is a (possibly indirect) ancestor of other.
func (s *State) IsAncestorOf(other *State) bool {
	return other.IsDescendant(s)
}

// Ancestors returns s and every ancestor up to and including the root, in
// that order (innermost first).
func (s *State) Ancestors() []*State {
	var out []*State
	for cur := s; cur != nil; cur = cur.Parent {
		out = append(out, cur)
	}
	return out
}

// AncestorsUpTo returns s and every ancestor strictly above s but strictly
// below (excluding) stop, innermost first. If stop is nil, behaves like
// Ancestors.
func (s *State) AncestorsUpTo(stop *State) []*State {
	var out []*State
	for cur := s; cur != nil && cur != stop; cur = cur.Parent {
		out = append(out, cur)
	}
	return out
}

// String renders a diagnostic form.
func (s *State) String() string {
	if s == nil {
		return "<nil state>"
	}
	return fmt.Sprintf("State(%s,%s)", s.ID, s.Kind)
}
