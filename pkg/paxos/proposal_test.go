package paxos

import "testing"

func TestIDOrdering(t *testing.T) {
	a := ID{Round: 2, NodeUID: "A"}
	b := ID{Round: 2, NodeUID: "B"}
	c := ID{Round: 1, NodeUID: "Z"}

	if !c.Less(a) {
		t.Fatalf("expected %v < %v", c, a)
	}
	if !a.Less(b) {
		t.Fatalf("expected %v < %v", a, b)
	}
	if !b.GreaterOrEqual(a) {
		t.Fatalf("expected %v >= %v", b, a)
	}
	if a.Equal(b) {
		t.Fatalf("did not expect %v == %v", a, b)
	}
}

func TestIDNone(t *testing.T) {
	if !None.IsNone() {
		t.Fatalf("expected zero value to be None")
	}
	real := ID{Round: 1, NodeUID: "A"}
	if real.IsNone() {
		t.Fatalf("did not expect %v to be None", real)
	}
	if !None.Less(real) {
		t.Fatalf("expected None to precede any real ID")
	}
}

func TestMax(t *testing.T) {
	a := ID{Round: 1, NodeUID: "A"}
	b := ID{Round: 2, NodeUID: "A"}
	if Max(a, b) != b {
		t.Fatalf("expected Max(%v, %v) == %v", a, b, b)
	}
	if Max(b, a) != b {
		t.Fatalf("expected Max(%v, %v) == %v", b, a, b)
	}
}
