package hsm

import (
	"errors"
	"fmt"

	"github.com/comalice/hsm/internal/callback"
	"github.com/comalice/hsm/internal/engine"
)

// InvalidDefinitionError aggregates every structural problem found while
// compiling a Builder's tree into a runnable Machine: unresolved guard
// names, malformed guard expressions, and required callback specs that
// resolved to nothing. Returned only from New.
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

// Unwrap lets errors.Is/errors.As reach any aggregated cause, including an
// AttrNotFoundError.
func (e *InvalidDefinitionError) Unwrap() []error { return e.Errors }

// InvalidStateValueError reports that a persisted/supplied state value does
// not correspond to any defined state.
type InvalidStateValueError struct {
	Value string
}

func (e *InvalidStateValueError) Error() string {
	return fmt.Sprintf("invalid state value: %q does not name a defined state", e.Value)
}

// TransitionNotAllowedError reports that Send found no enabled transition
// for an external event and the Machine was not built with
// WithAllowEventWithoutTransition. An unmatched internal (Raise) event is
// dropped without an error.
type TransitionNotAllowedError struct {
	EventType string
}

func (e *TransitionNotAllowedError) Error() string {
	return fmt.Sprintf("transition not allowed: no enabled transition for event %q", e.EventType)
}

// AttrNotFoundError reports that a callback spec given by name (enter, exit,
// validators, before, on or after) could not be resolved against any
// registered model or listener. An unknown name inside a guard expression
// is reported as a plain cause of InvalidDefinitionError instead.
type AttrNotFoundError struct {
	err error
}

func (e *AttrNotFoundError) Error() string { return e.err.Error() }
func (e *AttrNotFoundError) Unwrap() error { return e.err }

// translateDefinitionError converts an *engine.InvalidDefinitionError (the
// internal engine's build-time error, which folds AttrNotFound causes in
// alongside everything else) into the public, per-kind error types above,
// splitting out every AttrNotFound cause as its own AttrNotFoundError so
// callers can errors.As for it specifically.
func translateDefinitionError(err error) error {
	var ide *engine.InvalidDefinitionError
	if !errors.As(err, &ide) {
		return err
	}
	out := make([]error, len(ide.Errors))
	for i, cause := range ide.Errors {
		if errors.Is(cause, callback.ErrAttrNotFound) {
			out[i] = &AttrNotFoundError{err: cause}
			continue
		}
		out[i] = cause
	}
	return &InvalidDefinitionError{Errors: out}
}
