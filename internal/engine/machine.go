// Package engine implements the interpreter: the active configuration, the
// two event queues, history values, the non-reentrant processing gate, and
// the macrostep/microstep execution algorithm (transition selection,
// conflict resolution, transition-domain/exit-set/entry-set computation)
// that drives a built internal/tree.State definition against a model.
package engine

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/comalice/hsm/internal/callback"
	"github.com/comalice/hsm/internal/equeue"
	"github.com/comalice/hsm/internal/orderedset"
	"github.com/comalice/hsm/internal/tree"
)

// transitionRuntime is the per-Transition compiled state: the guard and the
// resolved, de-duplicated, priority-sorted callback lists for its four
// callback sites.
type transitionRuntime struct {
	guard      compiledGuard
	validators *callback.List
	before     *callback.List
	on         *callback.List
	after      *callback.List
}

// stateRuntime is the per-State compiled state: resolved enter/exit lists.
type stateRuntime struct {
	enter *callback.List
	exit  *callback.List
}

// Machine is the sync Engine of spec.md §4.7: it owns the configuration,
// the two queues, history values, the processing gate, and drives the
// macrostep loop.
type Machine struct {
	root     *tree.State
	registry *callback.Registry
	model    any

	mu            sync.Mutex
	config        *orderedset.Set[*tree.State]
	historyValues map[tree.StateID]*orderedset.Set[*tree.State]

	external *equeue.Queue
	internal *equeue.Queue

	processingSem *semaphore.Weighted

	logger *log.Logger

	allowEventWithoutTransition bool
	selfTransitionEntries       bool
	errorResilient              bool
	rtc                         bool

	transitionMeta map[*tree.Transition]*transitionRuntime
	stateMeta      map[*tree.State]*stateRuntime

	prepareSpecs []any
	prepare      *callback.List

	maxExternalQueue int

	initialActivated bool
	terminated       bool
}

// Option configures a Machine at construction time, following the
// teacher's functional-options convention (internal/core/options.go).
type Option func(*Machine)

// WithModel registers the primary lookup object for callback/guard
// resolution (highest priority: resolved before any listener).
func WithModel(model any) Option {
	return func(m *Machine) {
		m.model = model
		m.registry.AddLookup(callback.NewReflectResolver(model), model)
	}
}

// WithListener registers an additional, lower-priority lookup object.
// Mirrors Façade.AddListener (spec.md §4.8) for programmatic construction.
func WithListener(obj any) Option {
	return func(m *Machine) {
		m.registry.AddLookup(callback.NewReflectResolver(obj), obj)
	}
}

// WithLogger overrides the diagnostic logger (default log.Default()).
func WithLogger(l *log.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithAllowEventWithoutTransition sets the toggle of the same name
// (spec.md §6): when true, an external event matching no enabled
// transition is dropped instead of raising TransitionNotAllowedError.
func WithAllowEventWithoutTransition(v bool) Option {
	return func(m *Machine) { m.allowEventWithoutTransition = v }
}

// WithSelfTransitionEntries sets the toggle of the same name (spec.md §6):
// when true, an internal self-transition performs exit+entry of its own
// source; when false (the default, matching SCXML internal-transition
// semantics) they are suppressed.
func WithSelfTransitionEntries(v bool) Option {
	return func(m *Machine) { m.selfTransitionEntries = v }
}

// WithErrorResilient enables the error.execution recovery policy of
// spec.md §7: a user-callback error rolls back the microstep and enqueues
// a synthetic error.execution internal event instead of propagating.
func WithErrorResilient(v bool) Option {
	return func(m *Machine) { m.errorResilient = v }
}

// WithRTC sets run-to-completion mode (default true). false makes Send
// recurse inline instead of enqueue-and-return when called reentrantly
// from within a callback; see macrostep.go.
func WithRTC(v bool) Option {
	return func(m *Machine) { m.rtc = v }
}

// WithPrepare registers callback specs run once per candidate transition,
// before its validators, letting a model mutate extended state ahead of
// guard evaluation (SPEC_FULL.md §4, grounded on the source's prepare
// callback).
func WithPrepare(specs ...any) Option {
	return func(m *Machine) { m.prepareSpecs = append(m.prepareSpecs, specs...) }
}

// WithQueueSize caps the external event queue: once it holds n not-yet-
// processed triggers, Send returns ErrQueueFull instead of enqueueing a
// further one. 0 (the default) means unbounded, matching the teacher's
// unbuffered-by-default stance before WithQueueSize widens it.
func WithQueueSize(n int) Option {
	return func(m *Machine) { m.maxExternalQueue = n }
}

// New compiles root into a runnable Machine: resolves every guard and
// callback spec against the lookup objects registered via options, then
// performs initial activation (spec.md §4.7.5, sync variant: activation
// happens once here, before any user event). Returns *InvalidDefinitionError
// if any guard or required callback spec fails to resolve.
func New(root *tree.State, opts ...Option) (*Machine, error) {
	m := &Machine{
		root:           root,
		registry:       callback.NewRegistry(),
		config:         orderedset.New[*tree.State](),
		historyValues:  map[tree.StateID]*orderedset.Set[*tree.State]{},
		external:       equeue.New(),
		internal:       equeue.New(),
		processingSem:  semaphore.NewWeighted(1),
		logger:         log.Default(),
		rtc:            true,
		transitionMeta: map[*tree.Transition]*transitionRuntime{},
		stateMeta:      map[*tree.State]*stateRuntime{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.compile(); err != nil {
		return nil, err
	}
	if err := m.activateInitialLocked(); err != nil {
		return nil, err
	}
	return m, nil
}

// AddListener registers obj as an additional callback/guard lookup source
// and re-resolves every callback site, per spec.md §4.8.
func (m *Machine) AddListener(obj any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry.AddLookup(callback.NewReflectResolver(obj), obj)
	return m.compile()
}

func (m *Machine) compile() error {
	var errs []error

	prepareList, err := m.registry.Resolve(m.prepareSpecs, map[string]callback.Priority{"prepare": callback.PriorityGeneric}, false)
	if err != nil {
		errs = append(errs, fmt.Errorf("prepare: %w", err))
	}
	m.prepare = prepareList

	var walk func(s *tree.State)
	walk = func(s *tree.State) {
		enterConv := map[string]callback.Priority{
			fmt.Sprintf("on_enter_%s", s.ID): callback.PriorityConvention,
			"on_enter_state":                 callback.PriorityGeneric,
		}
		exitConv := map[string]callback.Priority{
			fmt.Sprintf("on_exit_%s", s.ID): callback.PriorityConvention,
			"on_exit_state":                 callback.PriorityGeneric,
		}
		enterList, err := m.registry.Resolve(s.Enter, enterConv, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("state %q enter: %w", s.ID, err))
		}
		exitList, err := m.registry.Resolve(s.Exit, exitConv, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("state %q exit: %w", s.ID, err))
		}
		m.stateMeta[s] = &stateRuntime{enter: enterList, exit: exitList}

		for _, t := range s.Transitions {
			rt := &transitionRuntime{}
			g, err := compileGuard(t.Guard, m.registry)
			if err != nil {
				errs = append(errs, fmt.Errorf("transition from %q: %w", s.ID, err))
			}
			rt.guard = g

			rt.validators, err = m.registry.Resolve(t.Validators, eventConvention("validate", t.Events), false)
			if err != nil {
				errs = append(errs, fmt.Errorf("transition from %q validators: %w", s.ID, err))
			}
			rt.before, err = m.registry.Resolve(t.Before, eventConvention("before", t.Events), false)
			if err != nil {
				errs = append(errs, fmt.Errorf("transition from %q before: %w", s.ID, err))
			}
			rt.on, err = m.registry.Resolve(t.On, eventConvention("on", t.Events), false)
			if err != nil {
				errs = append(errs, fmt.Errorf("transition from %q on: %w", s.ID, err))
			}
			rt.after, err = m.registry.Resolve(t.After, eventConvention("after", t.Events), false)
			if err != nil {
				errs = append(errs, fmt.Errorf("transition from %q after: %w", s.ID, err))
			}
			m.transitionMeta[t] = rt
		}

		for _, c := range s.Children {
			walk(c)
		}
	}
	walk(m.root)

	if len(errs) > 0 {
		return &InvalidDefinitionError{Errors: errs}
	}
	return nil
}

// eventConvention builds the naming-convention table for a before/on/after/
// validate callback site: a generic "<prefix>_transition" plus one
// "<prefix>_<event>" per event pattern the transition declares.
func eventConvention(prefix string, events []string) map[string]callback.Priority {
	conv := map[string]callback.Priority{prefix + "_transition": callback.PriorityGeneric}
	for _, ev := range events {
		conv[prefix+"_"+ev] = callback.PriorityConvention
	}
	return conv
}

// Configuration returns the currently active states, in document order. The
// synthetic root state, active for the machine's whole life, is not included.
func (m *Machine) Configuration() []*tree.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*tree.State, 0, m.config.Len())
	for _, s := range m.config.Items() {
		if s != m.root {
			items = append(items, s)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].DocOrder < items[j].DocOrder })
	return items
}

// IsTerminated reports whether a top-level final state has been entered.
func (m *Machine) IsTerminated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminated
}

// AllowedEvents derives the set of event names with at least one currently
// guard-passing enabled transition from some active leaf state's ancestor
// chain (spec.md §6 "Observe", supplemented per SPEC_FULL.md §4).
func (m *Machine) AllowedEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var names []string
	for _, leaf := range m.leafStatesInDocOrder() {
		for _, anc := range leaf.Ancestors() {
			for _, t := range anc.Transitions {
				if t.IsEventless() {
					continue
				}
				ctx := &callback.Context{Source: anc.ID, Model: m.model, Transition: t}
				ok, err := m.transitionMeta[t].guard(ctx)
				if err != nil || !ok {
					continue
				}
				for _, ev := range t.Events {
					if !seen[ev] {
						seen[ev] = true
						names = append(names, ev)
					}
				}
			}
		}
	}
	return names
}

// leafStatesInDocOrder returns the currently active states with no
// children (atomic or final), in document order.
func (m *Machine) leafStatesInDocOrder() []*tree.State {
	var leaves []*tree.State
	for _, s := range m.config.Items() {
		if len(s.Children) == 0 {
			leaves = append(leaves, s)
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].DocOrder < leaves[j].DocOrder })
	return leaves
}
