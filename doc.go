// Package hsm implements a hierarchical statechart interpreter: atomic,
// compound, parallel and final states; guarded, validated transitions with
// before/on/after callback hooks; shallow and deep history; eventless
// (always-enabled) transitions; and a run-to-completion event loop with a
// send/raise/cancel façade.
//
// A statechart definition is assembled with a Builder and compiled, once,
// into a Machine via New. The Machine owns the active configuration, the
// internal and external event queues, recorded history values, and the
// non-reentrant processing gate that enforces run-to-completion; none of
// that runtime state is exposed directly — Configuration, IsTerminated and
// AllowedEvents are the read-only introspection surface (spec.md §6
// "Observe").
//
// Guards, validators and callbacks may be given either as symbolic names
// resolved by naming convention against a model object (on_enter_<id>,
// before_<event>, ...) or as direct Go callables, adapted by reflection to
// bind only the engine-provided arguments they actually declare; see
// internal/callback.
package hsm
