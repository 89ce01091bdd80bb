package orderedset

import "testing"

func itemsEqual(t *testing.T, got []int, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (got %v, want %v)", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items = %v, want %v", got, want)
		}
	}
}

func TestAddDeduplicatesAndPreservesOrder(t *testing.T) {
	s := New(1, 2, 3, 3, 2, 1)
	itemsEqual(t, s.Items(), []int{1, 2, 3})
}

func TestDiscard(t *testing.T) {
	s := New(1, 2, 3)
	s.Discard(2)
	itemsEqual(t, s.Items(), []int{1, 3})
	if s.Contains(2) {
		t.Fatal("expected 2 to be discarded")
	}
	s.Add(4)
	itemsEqual(t, s.Items(), []int{1, 3, 4})
}

func TestUnionOrdersLeftThenRight(t *testing.T) {
	a := New(1, 2)
	b := New(2, 3)
	itemsEqual(t, a.Union(b).Items(), []int{1, 2, 3})
}

func TestIntersection(t *testing.T) {
	a := New(1, 2, 3)
	b := New(2, 3, 4)
	itemsEqual(t, a.Intersection(b).Items(), []int{2, 3})
}

func TestDifference(t *testing.T) {
	a := New(1, 2, 3)
	b := New(2)
	itemsEqual(t, a.Difference(b).Items(), []int{1, 3})

	c := New(1)
	itemsEqual(t, b.Difference(c).Items(), []int{2})
}

func TestSymmetricDifference(t *testing.T) {
	a := New(1, 2, 3)
	b := New(2, 4)
	itemsEqual(t, a.SymmetricDifference(b).Items(), []int{1, 3, 4})
}

func TestAt(t *testing.T) {
	s := New("a", "b", "c")
	if s.At(1) != "b" {
		t.Fatalf("At(1) = %v, want b", s.At(1))
	}
}

func TestIntersects(t *testing.T) {
	a := New(1, 2)
	b := New(3, 4)
	if a.Intersects(b) {
		t.Fatal("expected no intersection")
	}
	b.Add(2)
	if !a.Intersects(b) {
		t.Fatal("expected intersection")
	}
}

func TestEqual(t *testing.T) {
	a := New(1, 2, 3)
	b := New(1, 2, 3)
	c := New(3, 2, 1)
	if !a.Equal(b) {
		t.Fatal("expected equal")
	}
	if a.Equal(c) {
		t.Fatal("expected order to matter")
	}
}
