package engine

import (
	"errors"
	"fmt"
)

// ErrQueueFull is returned by Send when the Machine was built with
// WithQueueSize and the external queue is already at capacity.
var ErrQueueFull = errors.New("hsm: external event queue full")

// InvalidDefinitionError aggregates every structural problem found while
// compiling a tree.State into a runnable Machine: unresolved guard names,
// malformed guard expressions, and non-convention callback specs that
// resolved to nothing (spec kind 4, AttrNotFound, is folded in here since
// both are build-time-only and both propagate to the caller of the
// constructor).
type InvalidDefinitionError struct {
	Errors []error
}

func (e *InvalidDefinitionError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("invalid definition: %v", e.Errors[0])
	}
	msg := fmt.Sprintf("invalid definition: %d errors:", len(e.Errors))
	for _, err := range e.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Unwrap lets errors.Is/errors.As reach any of the aggregated causes,
// including callback.ErrAttrNotFound.
func (e *InvalidDefinitionError) Unwrap() []error { return e.Errors }

// InvalidStateValueError reports that a persisted/supplied state value does
// not correspond to any defined state.
type InvalidStateValueError struct {
	Value string
}

func (e *InvalidStateValueError) Error() string {
	return fmt.Sprintf("invalid state value: %q does not name a defined state", e.Value)
}

// TransitionNotAllowedError reports that send() found no enabled transition
// and the machine was not configured to tolerate unmatched events.
type TransitionNotAllowedError struct {
	EventType string
}

func (e *TransitionNotAllowedError) Error() string {
	return fmt.Sprintf("transition not allowed: no enabled transition for event %q", e.EventType)
}
