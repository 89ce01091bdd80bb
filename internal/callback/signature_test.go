package callback

import (
	"errors"
	"testing"

	"github.com/comalice/hsm/internal/tree"
)

func TestWrapBindsByParameterType(t *testing.T) {
	var gotEvent string
	var gotSource, gotTarget tree.StateID
	var gotKwargs map[string]any

	fn := func(ctx *Context, event string, source, target tree.StateID, kwargs map[string]any) {
		gotEvent = event
		gotSource = source
		gotTarget = target
		gotKwargs = kwargs
	}

	a, err := Wrap(fn)
	if err != nil {
		t.Fatal(err)
	}

	_, err = a.Call(&Context{
		EventType: "go",
		Source:    "idle",
		Target:    "running",
		Kwargs:    map[string]any{"speed": 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotEvent != "go" || gotSource != "idle" || gotTarget != "running" {
		t.Fatalf("binding mismatch: event=%q source=%q target=%q", gotEvent, gotSource, gotTarget)
	}
	if gotKwargs["speed"] != 5 {
		t.Fatalf("kwargs not bound: %v", gotKwargs)
	}
}

func TestWrapIgnoresUndeclaredParameters(t *testing.T) {
	called := false
	fn := func() { called = true }
	a, err := Wrap(fn)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Call(&Context{EventType: "go"}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestWrapPropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	fn := func() error { return sentinel }
	a, err := Wrap(fn)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Call(&Context{}); !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

func TestWrapValueAndError(t *testing.T) {
	fn := func() (int, error) { return 42, nil }
	a, err := Wrap(fn)
	if err != nil {
		t.Fatal(err)
	}
	v, err := a.Call(&Context{})
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("value = %v, want 42", v)
	}
}

func TestCallBoolCoercesTruthy(t *testing.T) {
	fn := func(kwargs map[string]any) bool { return kwargs["ok"] == true }
	a, err := Wrap(fn)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := a.CallBool(&Context{Kwargs: map[string]any{"ok": true}})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected true")
	}
	ok, err = a.CallBool(&Context{Kwargs: map[string]any{"ok": false}})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected false")
	}
}

func TestWrapRejectsUnsupportedParameter(t *testing.T) {
	fn := func(x chan int) {}
	if _, err := Wrap(fn); err == nil {
		t.Fatal("expected error for unsupported parameter type")
	}
}

func TestWrapRejectsNonFunc(t *testing.T) {
	if _, err := Wrap(42); err == nil {
		t.Fatal("expected error for non-function value")
	}
}

func TestWrapSecondAnyBindsToModel(t *testing.T) {
	var gotData, gotModel any
	fn := func(data, model any) {
		gotData = data
		gotModel = model
	}
	a, err := Wrap(fn)
	if err != nil {
		t.Fatal(err)
	}
	type myModel struct{ Name string }
	if _, err := a.Call(&Context{EventData: "payload", Model: &myModel{Name: "m"}}); err != nil {
		t.Fatal(err)
	}
	if gotData != "payload" {
		t.Fatalf("data = %v", gotData)
	}
	if m, ok := gotModel.(*myModel); !ok || m.Name != "m" {
		t.Fatalf("model = %v", gotModel)
	}
}
