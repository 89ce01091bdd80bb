package hsm

import (
	"github.com/comalice/hsm/internal/tree"
)

// Kind mirrors internal/tree.Kind for public state declaration.
type Kind = tree.Kind

const (
	Atomic   = tree.Atomic
	Compound = tree.Compound
	Parallel = tree.Parallel
	Final    = tree.Final
)

// HistoryKind mirrors internal/tree.HistoryKind.
type HistoryKind = tree.HistoryKind

const (
	Shallow = tree.Shallow
	Deep    = tree.Deep
)

// DoneDataFunc mirrors internal/tree.DoneDataFunc.
type DoneDataFunc = tree.DoneDataFunc

// Definition is a compiled, immutable statechart tree ready to drive a
// Machine via New. Produced by Builder.Build.
type Definition struct {
	root *tree.State
}

// Root returns the definition's root state for introspection tools (the
// diagram exporter, the hsmctl CLI) that need to walk the full tree rather
// than just a running Machine's active configuration.
func (d *Definition) Root() *tree.State { return d.root }

// Builder assembles a statechart hierarchy fluently and finalizes it into a
// Definition via Build, wrapping internal/tree.Builder (spec.md §3
// "StateTree", built once and never mutated afterward).
type Builder struct {
	b *tree.Builder
}

// NewBuilder starts a new Builder rooted at a synthetic compound state with
// the given id.
func NewBuilder(rootID string) *Builder {
	return &Builder{b: tree.NewBuilder(tree.StateID(rootID))}
}

// Root returns a StateBuilder for the implicit root compound state.
func (b *Builder) Root() *StateBuilder {
	return &StateBuilder{sb: b.b.Root()}
}

// StateBuilder configures one state fluently.
type StateBuilder struct {
	sb *tree.StateBuilder
}

// Child adds a new child state of the given kind to sb's state and returns
// a StateBuilder for it.
func (sb *StateBuilder) Child(id string, kind Kind) *StateBuilder {
	return &StateBuilder{sb: sb.sb.Child(tree.StateID(id), kind)}
}

// WithInitial marks childID as sb's initial child.
func (sb *StateBuilder) WithInitial(childID string) *StateBuilder {
	sb.sb.WithInitial(tree.StateID(childID))
	return sb
}

// WithName sets the display name (defaults to the id).
func (sb *StateBuilder) WithName(name string) *StateBuilder {
	sb.sb.WithName(name)
	return sb
}

// WithValue overrides the user-visible value (defaults to the id).
func (sb *StateBuilder) WithValue(v string) *StateBuilder {
	sb.sb.WithValue(v)
	return sb
}

// WithDoneData attaches a donedata producer to a final state.
func (sb *StateBuilder) WithDoneData(f DoneDataFunc) *StateBuilder {
	sb.sb.WithDoneData(f)
	return sb
}

// OnEnter appends an entry callback spec: a symbolic name resolved by
// naming convention or direct model lookup, or a direct Go callable.
func (sb *StateBuilder) OnEnter(spec any) *StateBuilder {
	sb.sb.OnEnter(spec)
	return sb
}

// OnExit appends an exit callback spec.
func (sb *StateBuilder) OnExit(spec any) *StateBuilder {
	sb.sb.OnExit(spec)
	return sb
}

// AddHistory attaches a shallow/deep history pseudo-state to sb's
// (compound) state, with defaultTargetID used when no history has yet
// been recorded.
func (sb *StateBuilder) AddHistory(id string, kind HistoryKind, defaultTargetID string) *StateBuilder {
	sb.sb.AddHistory(tree.StateID(id), kind, tree.StateID(defaultTargetID))
	return sb
}

// AddTransition adds a transition from sb's state matching any of events
// (empty for an eventless transition). targetID may be empty for an
// internal no-op transition.
func (sb *StateBuilder) AddTransition(events []string, targetID string, opts ...TransitionOption) *StateBuilder {
	treeOpts := make([]tree.TransitionOption, len(opts))
	for i, o := range opts {
		treeOpts[i] = tree.TransitionOption(o)
	}
	sb.sb.AddTransition(events, tree.StateID(targetID), treeOpts...)
	return sb
}

// TransitionOption configures a transition at AddTransition time.
type TransitionOption tree.TransitionOption

// WithGuard attaches a guard: a boolean-expression string, a
// func(map[string]any) bool, or a direct Go callable coerced to bool.
func WithGuard(g any) TransitionOption { return TransitionOption(tree.WithGuard(g)) }

// WithInternal marks the transition internal: no exit/entry of its source
// unless the Machine is built with WithSelfTransitionEntries.
func WithInternal() TransitionOption { return TransitionOption(tree.WithInternal()) }

// WithWeight sets a transition's declared weight (currently informational;
// document order remains the conflict-resolution tie-breaker).
func WithWeight(w int) TransitionOption { return TransitionOption(tree.WithWeight(w)) }

// WithValidators appends validator specs: run before guards, for every
// candidate, and may abort the candidate by returning an error.
func WithValidators(specs ...any) TransitionOption {
	return TransitionOption(tree.WithValidators(specs...))
}

// WithBefore appends before-callback specs, run ahead of any exit.
func WithBefore(specs ...any) TransitionOption { return TransitionOption(tree.WithBefore(specs...)) }

// WithOn appends on-callback specs, run between exit and entry.
func WithOn(specs ...any) TransitionOption { return TransitionOption(tree.WithOn(specs...)) }

// WithAfter appends after-callback specs, run once entry completes; errors
// here do not roll back the already-committed configuration change.
func WithAfter(specs ...any) TransitionOption { return TransitionOption(tree.WithAfter(specs...)) }

// Build finalizes the tree: resolves pending transition targets and
// history defaults, infers missing initial children, assigns document
// order, and validates. strict rejects trap states (non-final atomic
// states with no outgoing transition at all) and states with no path to
// any final state. A validation failure is returned as tree.ValidationErrors
// listing every problem found; an unknown transition or history target is
// reported as a plain error.
func (b *Builder) Build(strict bool) (*Definition, error) {
	root, err := b.b.Build(strict)
	if err != nil {
		return nil, err
	}
	return &Definition{root: root}, nil
}
