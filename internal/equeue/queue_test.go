package equeue

import (
	"testing"
	"time"
)

func TestPutPopFIFO(t *testing.T) {
	q := New()
	q.Put(Trigger{EventType: "a"})
	q.Put(Trigger{EventType: "b"})

	tr, ok := q.Pop()
	if !ok || tr.EventType != "a" {
		t.Fatalf("got %+v, %v, want a", tr, ok)
	}
	tr, ok = q.Pop()
	if !ok || tr.EventType != "b" {
		t.Fatalf("got %+v, %v, want b", tr, ok)
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestPopSkipsNotYetDue(t *testing.T) {
	q := New()
	q.Put(Trigger{EventType: "future", ExecutionTime: time.Now().Add(time.Hour)})
	q.Put(Trigger{EventType: "now"})

	tr, ok := q.Pop()
	if !ok || tr.EventType != "now" {
		t.Fatalf("got %+v, %v, want now", tr, ok)
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("future trigger should not be due")
	}
}

func TestPopAnyReportsDueFlag(t *testing.T) {
	q := New()
	q.Put(Trigger{EventType: "future", ExecutionTime: time.Now().Add(time.Hour)})

	tr, due, ok := q.PopAny()
	if !ok || due {
		t.Fatalf("got due=%v ok=%v, want due=false ok=true", due, ok)
	}
	if tr.EventType != "future" {
		t.Fatalf("got %+v", tr)
	}
	if !q.IsEmpty() {
		t.Fatal("PopAny should remove the item regardless of due-ness")
	}
}

func TestRemoveBySendID(t *testing.T) {
	q := New()
	q.Put(Trigger{EventType: "a", SendID: "k1"})
	q.Put(Trigger{EventType: "b", SendID: "k2"})
	q.Put(Trigger{EventType: "c", SendID: "k1"})

	q.RemoveBySendID("k1")

	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
	tr, ok := q.Pop()
	if !ok || tr.EventType != "b" {
		t.Fatalf("got %+v", tr)
	}
}

func TestClear(t *testing.T) {
	q := New()
	q.Put(Trigger{EventType: "a"})
	q.Clear()
	if !q.IsEmpty() {
		t.Fatal("expected empty after Clear")
	}
}

func TestRequeue(t *testing.T) {
	q := New()
	q.Put(Trigger{EventType: "a"})
	tr, _, _ := q.PopAny()
	q.Requeue(tr)
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
}
