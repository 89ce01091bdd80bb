package engine

import (
	"errors"
	"sort"
	"time"

	"github.com/comalice/hsm/internal/callback"
	"github.com/comalice/hsm/internal/equeue"
	"github.com/comalice/hsm/internal/orderedset"
	"github.com/comalice/hsm/internal/tree"
)

// activateInitialLocked performs the sync variant of initial activation
// (spec.md §4.7.5): entering the root's default-initial descendant chain as
// if a single synthetic transition had just fired, then draining any
// resulting eventless transitions and done-state events to quiescence.
// Called once, from New, before any other goroutine can reach m.
func (m *Machine) activateInitialLocked() error {
	entrySet := orderedset.New[*tree.State]()
	m.addDescendantStatesToEnter(m.root, entrySet)
	entry := entrySet.Items()
	sort.Slice(entry, func(i, j int) bool { return entry[i].DocOrder < entry[j].DocOrder })

	for _, s := range entry {
		m.config.Add(s)
		ctx := &callback.Context{State: s.ID, Model: m.model}
		if sr := m.stateMeta[s]; sr != nil && sr.enter != nil {
			if err := sr.enter.CallAll(ctx); err != nil {
				return err
			}
		}
		if s.IsFinal() {
			m.maybeEmitDone(s, ctx)
		}
	}
	m.initialActivated = true
	_, err := m.runLoop()
	return err
}

// SendOption configures an enqueued trigger.
type SendOption func(*equeue.Trigger)

// WithSendID attaches a send id, for later Cancel.
func WithSendID(id string) SendOption { return func(t *equeue.Trigger) { t.SendID = id } }

// WithArgs attaches positional event data.
func WithArgs(args ...any) SendOption { return func(t *equeue.Trigger) { t.Args = args } }

// WithKwargs attaches keyword event data.
func WithKwargs(kw map[string]any) SendOption { return func(t *equeue.Trigger) { t.Kwargs = kw } }

// WithDelay schedules the trigger for no earlier than d from now.
func WithDelay(d time.Duration) SendOption {
	return func(t *equeue.Trigger) { t.ExecutionTime = time.Now().Add(d) }
}

// Send enqueues an external event and, unless called reentrantly while the
// processing gate is already held, drives the machine to quiescence before
// returning (run-to-completion; spec.md §4.7.6). It returns the first
// non-nil result produced by any matched transition's "on" callback.
func (m *Machine) Send(eventType string, opts ...SendOption) (any, error) {
	trig := equeue.Trigger{EventType: eventType}
	for _, o := range opts {
		o(&trig)
	}
	m.mu.Lock()
	if m.maxExternalQueue > 0 && m.external.Len() >= m.maxExternalQueue {
		m.mu.Unlock()
		return nil, ErrQueueFull
	}
	m.external.Put(trig)
	m.mu.Unlock()
	return m.drive()
}

// Raise enqueues an internal event, processed ahead of any pending external
// event, per spec.md §6.
func (m *Machine) Raise(eventType string, opts ...SendOption) (any, error) {
	trig := equeue.Trigger{EventType: eventType, Internal: true}
	for _, o := range opts {
		o(&trig)
	}
	m.mu.Lock()
	m.internal.Put(trig)
	m.mu.Unlock()
	return m.drive()
}

// Cancel removes every not-yet-processed queued trigger (internal or
// external) carrying sendID, per spec.md §6.
func (m *Machine) Cancel(sendID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.external.RemoveBySendID(sendID)
	m.internal.RemoveBySendID(sendID)
}

// drive acquires the processing gate (when running in RTC mode) and runs
// the macrostep loop, or — for a reentrant call made from within a callback
// while the gate is already held — simply leaves the trigger queued for the
// outer call's next loop iteration, per spec.md §4.7.6's concurrency gate.
func (m *Machine) drive() (any, error) {
	if !m.rtc {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.runLoop()
	}

	if !m.processingSem.TryAcquire(1) {
		return nil, nil
	}
	defer m.processingSem.Release(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runLoop()
}

// runLoop implements the macrostep algorithm (spec.md §4.7.4): drain
// eventless and internal triggers to quiescence (phases 1-2), then process
// at most one external trigger (phase 3), repeating until neither queue can
// make further progress.
func (m *Machine) runLoop() (any, error) {
	var result any
	haveResult := false

	for {
		if m.terminated {
			return result, nil
		}

		if ts := m.selectEventless(); len(ts) > 0 {
			r, err := m.step(ts, nil)
			if !haveResult && r != nil {
				result, haveResult = r, true
			}
			if err != nil {
				return result, err
			}
			continue
		}

		if trig, ok := m.internal.Pop(); ok {
			r, err := m.stepTrigger(trig)
			if !haveResult && r != nil {
				result, haveResult = r, true
			}
			if err != nil {
				return result, err
			}
			continue
		}

		trig, due, gotTrig := m.external.PopAny()
		if !gotTrig {
			return result, nil
		}
		if !due {
			m.external.Requeue(trig)
			return result, nil
		}
		r, err := m.stepTrigger(trig)
		if !haveResult && r != nil {
			result, haveResult = r, true
		}
		if err != nil {
			return result, err
		}
	}
}

// stepTrigger selects and fires the transitions enabled by trig, applying
// spec.md §6/§7's unmatched-event and error-recovery policies.
func (m *Machine) stepTrigger(trig equeue.Trigger) (any, error) {
	ts := m.selectForTrigger(&trig)
	if len(ts) == 0 {
		if trig.Internal || m.allowEventWithoutTransition {
			return nil, nil
		}
		return nil, &TransitionNotAllowedError{EventType: trig.EventType}
	}
	return m.step(ts, &trig)
}

// step fires ts via microstep and applies the error-resilience policy: a
// rollback-eligible error either propagates (clearing the external queue,
// since the configuration it was queued against may no longer be valid) or,
// when WithErrorResilient is set, is swallowed and reported via a synthetic
// error.execution internal event instead. After-callback errors (rollback
// == false) always propagate regardless of the policy: the state change
// they are reacting to already committed.
func (m *Machine) step(ts []*tree.Transition, trig *equeue.Trigger) (any, error) {
	result, err := m.microstep(ts, trig)
	if err == nil {
		return result, nil
	}

	var mse *microstepError
	if !errors.As(err, &mse) {
		return result, err
	}
	if !mse.rollback {
		return result, mse.err
	}

	if m.errorResilient {
		if trig != nil && trig.EventType == "error.execution" {
			// A failure while handling error.execution is logged and
			// dropped rather than raising another error.execution.
			m.logger.Printf("hsm: error while processing error.execution: %v", mse.err)
			return result, nil
		}
		m.internal.Put(equeue.Trigger{EventType: "error.execution", Data: mse.err, Internal: true})
		return result, nil
	}
	m.external.Clear()
	return result, mse.err
}
