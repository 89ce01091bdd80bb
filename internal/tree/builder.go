package tree

import "fmt"

// Builder assembles a State hierarchy fluently and finalizes it into an
// immutable tree via Build. It never mutates a State after Build returns,
// matching the "built once" lifecycle spec.md §3 requires.
type Builder struct {
	states          map[StateID]*State
	histories       map[StateID]*History
	root            *State
	pendingTargets  []pendingTarget
	historyDefaults []pendingHistoryDefault
}

// NewBuilder starts a new tree rooted at a synthetic compound state with the
// given id whose initial child is set via Root().WithInitial (or
// inferred as the first declared child).
func NewBuilder(rootID StateID) *Builder {
	root := &State{ID: rootID, Kind: Compound, Value: string(rootID)}
	b := &Builder{states: map[StateID]*State{rootID: root}, histories: map[StateID]*History{}, root: root}
	return b
}

// Root returns a StateBuilder for the implicit root compound state.
func (b *Builder) Root() *StateBuilder {
	return &StateBuilder{b: b, s: b.root}
}

// StateBuilder configures one State fluently.
type StateBuilder struct {
	b *Builder
	s *State
}

// State returns the underlying built State (valid for reading Enter/Exit
// slices before Build; identity is stable across Build).
func (sb *StateBuilder) State() *State { return sb.s }

// Child adds a new child state of the given kind to sb's state.
func (sb *StateBuilder) Child(id StateID, kind Kind) *StateBuilder {
	child := &State{ID: id, Kind: kind, Value: string(id), Parent: sb.s}
	sb.b.states[id] = child
	sb.s.Children = append(sb.s.Children, child)
	return &StateBuilder{b: sb.b, s: child}
}

// WithInitial marks childID as sb's initial child (compound/parallel-region
// selection). childID must already have been added via Child.
func (sb *StateBuilder) WithInitial(childID StateID) *StateBuilder {
	if child, ok := sb.b.states[childID]; ok {
		sb.s.Initial = child
	}
	return sb
}

// WithName sets the display name (defaults to the ID).
func (sb *StateBuilder) WithName(name string) *StateBuilder {
	sb.s.Name = name
	return sb
}

// WithValue overrides the user-visible value (defaults to the ID).
func (sb *StateBuilder) WithValue(v string) *StateBuilder {
	sb.s.Value = v
	return sb
}

// WithDoneData attaches a donedata producer to a final state.
func (sb *StateBuilder) WithDoneData(f DoneDataFunc) *StateBuilder {
	sb.s.DoneData = f
	return sb
}

// OnEnter appends an entry callback spec.
func (sb *StateBuilder) OnEnter(spec CallbackSpec) *StateBuilder {
	sb.s.Enter = append(sb.s.Enter, spec)
	return sb
}

// OnExit appends an exit callback spec.
func (sb *StateBuilder) OnExit(spec CallbackSpec) *StateBuilder {
	sb.s.Exit = append(sb.s.Exit, spec)
	return sb
}

// AddHistory attaches a history pseudo-state to sb's (compound) state.
// defaultTarget is resolved against already-built sibling IDs (children of
// sb's state); it may reference a not-yet-added child as long as it exists
// by the time Build runs.
func (sb *StateBuilder) AddHistory(id StateID, kind HistoryKind, defaultTargetID StateID) *StateBuilder {
	h := &History{ID: id, Kind: kind, Parent: sb.s}
	sb.b.histories[id] = h
	sb.b.historyDefaults = append(sb.b.historyDefaults, pendingHistoryDefault{h: h, targetID: defaultTargetID})
	sb.s.Histories = append(sb.s.Histories, h)
	return sb
}

type pendingHistoryDefault struct {
	h        *History
	targetID StateID
}

// AddTransition adds a transition from sb's state. targetID may be empty
// for an internal transition with Target == nil (no exit/entry at all).
func (sb *StateBuilder) AddTransition(events []string, targetID StateID, opts ...TransitionOption) *StateBuilder {
	t := &Transition{Source: sb.s, Events: events}
	if targetID != "" {
		sb.b.pendingTargets = append(sb.b.pendingTargets, pendingTarget{t: t, targetID: targetID})
	}
	for _, opt := range opts {
		opt(t)
	}
	sb.s.Transitions = append(sb.s.Transitions, t)
	return sb
}

type pendingTarget struct {
	t        *Transition
	targetID StateID
}

// TransitionOption configures a Transition at AddTransition time.
type TransitionOption func(*Transition)

func WithGuard(g GuardSpec) TransitionOption    { return func(t *Transition) { t.Guard = g } }
func WithInternal() TransitionOption            { return func(t *Transition) { t.Internal = true } }
func WithWeight(w int) TransitionOption         { return func(t *Transition) { t.Weight = w } }
func WithValidators(specs ...CallbackSpec) TransitionOption {
	return func(t *Transition) { t.Validators = append(t.Validators, specs...) }
}
func WithBefore(specs ...CallbackSpec) TransitionOption {
	return func(t *Transition) { t.Before = append(t.Before, specs...) }
}
func WithOn(specs ...CallbackSpec) TransitionOption {
	return func(t *Transition) { t.On = append(t.On, specs...) }
}
func WithAfter(specs ...CallbackSpec) TransitionOption {
	return func(t *Transition) { t.After = append(t.After, specs...) }
}

// Build finalizes the tree: resolves pending transition targets and history
// defaults, infers missing Initial children (first child in document
// order), assigns DocOrder and Path to every state and transition, then
// validates. Returns the root state, or a ValidationErrors if the
// definition is structurally invalid (spec.md kind: InvalidDefinition).
func (b *Builder) Build(strict bool) (*State, error) {
	for _, pt := range b.pendingTargets {
		if target, ok := b.states[pt.targetID]; ok {
			pt.t.Target = target
		} else if h, ok := b.histories[pt.targetID]; ok {
			pt.t.TargetHistory = h
		} else {
			return nil, fmt.Errorf("transition from %q: unknown target %q", pt.t.Source.ID, pt.targetID)
		}
	}
	for _, ph := range b.historyDefaults {
		target, ok := b.states[ph.targetID]
		if !ok {
			return nil, fmt.Errorf("history %q: unknown default target %q", ph.h.ID, ph.targetID)
		}
		ph.h.Default = &Transition{Source: ph.h.Parent, Target: target}
	}

	// Infer initial child = first declared child, where unset.
	var inferInitial func(s *State)
	inferInitial = func(s *State) {
		if (s.Kind == Compound || s.Kind == Parallel) && s.Initial == nil && len(s.Children) > 0 {
			s.Initial = s.Children[0]
		}
		for _, c := range s.Children {
			inferInitial(c)
		}
	}
	inferInitial(b.root)

	docOrder := 0
	var assign func(s *State, path string)
	assign = func(s *State, path string) {
		s.DocOrder = docOrder
		docOrder++
		s.Path = path
		for _, t := range s.Transitions {
			t.DocOrder = docOrder
			docOrder++
		}
		for _, h := range s.Histories {
			h.DocOrder = docOrder
			docOrder++
		}
		for _, c := range s.Children {
			assign(c, path+"."+string(c.ID))
		}
	}
	assign(b.root, string(b.root.ID))

	if errs := Validate(b.root, strict); len(errs) > 0 {
		return nil, errs
	}
	return b.root, nil
}
