// Package equeue implements the FIFO-with-delay trigger queue the engine
// drains on every macrostep: a non-blocking put/pop with removal-by-id for
// cancellation, and due-time ordering so delayed external events wait their
// turn without blocking the caller that scheduled them.
package equeue

import (
	"sync"
	"time"
)

// Trigger is one event occurrence queued for processing.
type Trigger struct {
	EventType     string
	Args          []any
	Kwargs        map[string]any
	Data          any // donedata payload, or the error carried by error.execution; nil otherwise
	SendID        string
	ExecutionTime time.Time // zero value means "due now"
	Internal      bool

	seq int64 // insertion sequence, for FIFO among equal due times
}

// Due reports whether the trigger's scheduled time has arrived.
func (t Trigger) Due(now time.Time) bool {
	return t.ExecutionTime.IsZero() || !t.ExecutionTime.After(now)
}

// Queue is a non-blocking, thread-safe FIFO of triggers. Put is safe to call
// from any goroutine; Pop/Remove/Clear are intended to be called only by the
// engine's single processing loop, but are synchronized regardless so a
// misuse doesn't corrupt internal state.
type Queue struct {
	mu      sync.Mutex
	items   []Trigger
	nextSeq int64
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Put appends a trigger. Never blocks.
func (q *Queue) Put(t Trigger) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t.seq = q.nextSeq
	q.nextSeq++
	q.items = append(q.items, t)
}

// Pop removes and returns the earliest-queued trigger that is due, scanning
// in FIFO order and skipping (re-visiting, not reordering) not-yet-due
// triggers. Returns ok=false if the queue is empty or nothing is due.
func (q *Queue) Pop() (Trigger, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Trigger{}, false
	}

	now := time.Now()
	for i, t := range q.items {
		if t.Due(now) {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return t, true
		}
	}
	return Trigger{}, false
}

// PopAny removes and returns the first-queued trigger regardless of due
// time, reporting whether it was (already) due. Used by the macrostep loop
// to decide between "process now" and "re-enqueue and end the current pass";
// the loop does not wait for a not-yet-due trigger, which is processed by a
// later Send or Raise once due.
func (q *Queue) PopAny() (Trigger, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Trigger{}, false, false
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, t.Due(time.Now()), true
}

// Requeue re-appends a trigger at the back of the queue (used when PopAny
// returned a not-yet-due trigger that must wait its turn).
func (q *Queue) Requeue(t Trigger) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, t)
}

// RemoveBySendID deletes every trigger whose SendID matches id. Used by
// cancel(send_id).
func (q *Queue) RemoveBySendID(id string) {
	if id == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.items[:0]
	for _, t := range q.items {
		if t.SendID != id {
			kept = append(kept, t)
		}
	}
	q.items = kept
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// IsEmpty reports whether the queue currently holds no triggers.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len reports the number of queued triggers, due or not.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
