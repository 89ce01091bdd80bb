package tree

import "testing"

func TestBuildSimpleTrafficLight(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	root.Child("green", Atomic).AddTransition([]string{"cycle"}, "yellow")
	root.Child("yellow", Atomic).AddTransition([]string{"cycle"}, "red")
	root.Child("red", Atomic).AddTransition([]string{"cycle"}, "green")
	root.WithInitial("green")

	r, err := b.Build(false)
	if err != nil {
		t.Fatal(err)
	}
	if r.Initial == nil || r.Initial.ID != "green" {
		t.Fatalf("initial = %v, want green", r.Initial)
	}
	green := r.Children[0]
	if len(green.Transitions) != 1 || green.Transitions[0].Target.ID != "yellow" {
		t.Fatalf("green transitions = %+v", green.Transitions)
	}
}

func TestUnknownTargetFails(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	root.Child("a", Atomic).AddTransition([]string{"go"}, "nowhere")
	root.WithInitial("a")
	if _, err := b.Build(false); err == nil {
		t.Fatal("expected error for unknown transition target")
	}
}

func TestCompoundWithoutInitialInfersFirstChild(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	outer := root.Child("outer", Compound)
	outer.Child("a", Atomic).AddTransition([]string{"go"}, "b")
	outer.Child("b", Atomic)
	root.WithInitial("outer")

	r, err := b.Build(false)
	if err != nil {
		t.Fatal(err)
	}
	outerState := r.Children[0]
	if outerState.Initial == nil || outerState.Initial.ID != "a" {
		t.Fatalf("initial = %v, want a", outerState.Initial)
	}
}

func TestTrapStateFailsOnlyInStrictMode(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	root.Child("dead", Atomic)
	root.WithInitial("dead")

	if _, err := b.Build(false); err != nil {
		t.Fatalf("non-strict build should tolerate a trap state: %v", err)
	}

	b2 := NewBuilder("root")
	root2 := b2.Root()
	root2.Child("dead", Atomic)
	root2.WithInitial("dead")
	if _, err := b2.Build(true); err == nil {
		t.Fatal("strict build should reject a trap state")
	}
}

func TestHistoryDefaultResolution(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	outer := root.Child("outer", Compound)
	outer.Child("a", Atomic)
	outer.Child("b", Atomic)
	outer.AddHistory("h", Shallow, "a")
	root.WithInitial("outer")

	r, err := b.Build(false)
	if err != nil {
		t.Fatal(err)
	}
	outerState := r.Children[0]
	if len(outerState.Histories) != 1 {
		t.Fatalf("histories = %+v", outerState.Histories)
	}
	if outerState.Histories[0].Default.Target.ID != "a" {
		t.Fatalf("history default = %v, want a", outerState.Histories[0].Default.Target)
	}
}

func TestEventMatchesPrefixWithDotBoundary(t *testing.T) {
	tr := &Transition{Events: []string{"error", "error.execution.*"}}
	cases := map[string]bool{
		"error":                   true,
		"error.execution":         true,
		"error.execution.network": true,
		"errorish":                false,
		"other":                   false,
	}
	for ev, want := range cases {
		if got := tr.Matches(ev); got != want {
			t.Errorf("Matches(%q) = %v, want %v", ev, got, want)
		}
	}
}

func TestDocOrderIsAssignedDepthFirst(t *testing.T) {
	b := NewBuilder("root")
	root := b.Root()
	root.Child("a", Atomic)
	root.Child("b", Atomic)
	root.WithInitial("a")

	r, err := b.Build(false)
	if err != nil {
		t.Fatal(err)
	}
	if r.Children[0].DocOrder >= r.Children[1].DocOrder {
		t.Fatalf("expected a before b in document order: %d, %d", r.Children[0].DocOrder, r.Children[1].DocOrder)
	}
}
