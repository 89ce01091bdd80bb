package hsm

import (
	"log"

	"github.com/comalice/hsm/internal/engine"
)

// Option configures a Machine at construction time (spec.md §6's toggles,
// plus ambient concerns), following the teacher's functional-options
// convention (internal/core/options.go).
type Option engine.Option

// engineOptions converts a façade-level Option slice into the internal
// engine.Option slice New actually consumes.
func engineOptions(opts []Option) []engine.Option {
	out := make([]engine.Option, len(opts))
	for i, o := range opts {
		out[i] = engine.Option(o)
	}
	return out
}

// WithModel registers the primary lookup object for guard/callback
// resolution (highest priority: resolved ahead of any listener added later
// via Machine.AddListener).
func WithModel(model any) Option { return Option(engine.WithModel(model)) }

// WithListener registers an additional, lower-priority lookup object at
// construction time. Equivalent to calling Machine.AddListener immediately
// after New.
func WithListener(obj any) Option { return Option(engine.WithListener(obj)) }

// WithLogger overrides the diagnostic logger (default log.Default()), used
// for candidate transitions dropped because a prepare callback, validator
// or guard failed, and for errors raised while error.execution is handled.
func WithLogger(l *log.Logger) Option { return Option(engine.WithLogger(l)) }

// WithAllowEventWithoutTransition sets the toggle of the same name (spec.md
// §6): when true, an external event matching no enabled transition is
// dropped instead of raising TransitionNotAllowedError.
func WithAllowEventWithoutTransition(v bool) Option {
	return Option(engine.WithAllowEventWithoutTransition(v))
}

// WithSelfTransitionEntries sets the toggle of the same name (spec.md §6):
// when true, an internal self-transition performs exit+entry of its own
// source; when false (the default) they are suppressed.
func WithSelfTransitionEntries(v bool) Option {
	return Option(engine.WithSelfTransitionEntries(v))
}

// WithErrorResilient enables the error.execution recovery policy of
// spec.md §7: a user-callback error rolls back the microstep and enqueues
// a synthetic error.execution internal event instead of propagating.
func WithErrorResilient(v bool) Option { return Option(engine.WithErrorResilient(v)) }

// WithRTC sets run-to-completion mode (default true); false makes Send
// recurse inline instead of enqueue-and-return when called reentrantly
// from within a running callback.
func WithRTC(v bool) Option { return Option(engine.WithRTC(v)) }

// WithPrepare registers callback specs run once per candidate transition,
// before its validators, letting a model mutate extended state ahead of
// guard evaluation.
func WithPrepare(specs ...any) Option { return Option(engine.WithPrepare(specs...)) }

// WithQueueSize caps the external event queue: once it holds n
// not-yet-processed events, Send returns engine.ErrQueueFull instead of
// enqueueing a further one. 0 (the default)
// means unbounded.
func WithQueueSize(n int) Option { return Option(engine.WithQueueSize(n)) }
