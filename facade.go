package hsm

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/comalice/hsm/internal/engine"
)

// Machine is the façade over the engine: the public entry point for
// building, driving and introspecting a statechart instance (spec.md
// §4.8). It is safe for concurrent use; Send/Raise serialize through the
// engine's processing gate.
type Machine struct {
	eng *engine.Machine
}

// New compiles def into a runnable Machine: resolves every guard and
// callback spec registered via opts against the model/listener objects,
// then performs initial activation (spec.md §4.7.5). Returns
// *InvalidDefinitionError if any guard or callback spec fails to resolve.
func New(def *Definition, opts ...Option) (*Machine, error) {
	m, err := engine.New(def.root, engineOptions(opts)...)
	if err != nil {
		return nil, translateDefinitionError(err)
	}
	return &Machine{eng: m}, nil
}

// SendOption configures one enqueued trigger (send id, positional/keyword
// event data, delay).
type SendOption = engine.SendOption

// WithSendID attaches an explicit send id, for later Cancel. When omitted,
// Send generates one with uuid.NewString so every event remains
// cancellable by id even if the caller never named it.
func WithSendID(id string) SendOption { return engine.WithSendID(id) }

// WithArgs attaches positional event data.
func WithArgs(args ...any) SendOption { return engine.WithArgs(args...) }

// WithKwargs attaches keyword event data.
func WithKwargs(kw map[string]any) SendOption { return engine.WithKwargs(kw) }

// WithDelay schedules the event for no earlier than d from now.
func WithDelay(d time.Duration) SendOption { return engine.WithDelay(d) }

// Send enqueues an external event and, unless called reentrantly from
// within a running callback, drives the machine to quiescence before
// returning (run-to-completion; spec.md §4.7.6). It returns the first
// non-nil result produced by any matched transition's "on" callback. If no
// WithSendID option is given, a uuid-generated send id is attached so the
// event remains cancellable.
func (m *Machine) Send(eventType string, opts ...SendOption) (any, error) {
	res, err := m.eng.Send(eventType, withDefaultSendID(opts)...)
	return res, translateRunError(err)
}

// Raise enqueues an internal event, processed ahead of any pending
// external event (spec.md §6).
func (m *Machine) Raise(eventType string, opts ...SendOption) (any, error) {
	res, err := m.eng.Raise(eventType, withDefaultSendID(opts)...)
	return res, translateRunError(err)
}

// translateRunError converts the engine's *TransitionNotAllowedError into
// this package's *TransitionNotAllowedError; other errors pass through.
func translateRunError(err error) error {
	var tnae *engine.TransitionNotAllowedError
	if errors.As(err, &tnae) {
		return &TransitionNotAllowedError{EventType: tnae.EventType}
	}
	return err
}

// withDefaultSendID prepends a uuid-generated send id so it applies first;
// an explicit WithSendID passed by the caller still wins, since SendOptions
// apply in order and each one simply overwrites the trigger's SendID field.
func withDefaultSendID(opts []SendOption) []SendOption {
	return append([]SendOption{engine.WithSendID(uuid.NewString())}, opts...)
}

// Cancel removes every not-yet-processed queued event (internal or
// external) carrying sendID.
func (m *Machine) Cancel(sendID string) {
	m.eng.Cancel(sendID)
}

// Configuration returns the currently active states' ids, in document
// order.
func (m *Machine) Configuration() []string {
	states := m.eng.Configuration()
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s.ID)
	}
	return out
}

// IsTerminated reports whether a top-level final state has been entered.
func (m *Machine) IsTerminated() bool {
	return m.eng.IsTerminated()
}

// AllowedEvents returns the event names with at least one currently
// guard-passing enabled transition from the active configuration (spec.md
// §6 "Observe").
func (m *Machine) AllowedEvents() []string {
	return m.eng.AllowedEvents()
}

// AddListener registers obj as an additional callback/guard lookup source,
// lower priority than the model supplied via WithModel, and re-resolves
// every callback site against it (spec.md §4.8).
func (m *Machine) AddListener(obj any) error {
	return m.eng.AddListener(obj)
}
