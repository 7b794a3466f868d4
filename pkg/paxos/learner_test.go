package paxos

import "testing"

func TestLearnerResolvesExactlyAtQuorum(t *testing.T) {
	l := NewLearner(3)
	id := ID{Round: 1, NodeUID: "A"}

	l.ReceiveAccepted("n1", id, "v")
	l.ReceiveAccepted("n2", id, "v")
	if l.Resolved() {
		t.Fatalf("did not expect resolution one short of quorum")
	}

	l.ReceiveAccepted("n3", id, "v")
	if !l.Resolved() {
		t.Fatalf("expected resolution at quorum")
	}
	gotID, gotVal := l.FinalValue()
	if gotID != id || gotVal != "v" {
		t.Fatalf("expected (%v, v), got (%v, %v)", id, gotID, gotVal)
	}
}

func TestLearnerDuplicateAcceptedIsIdempotent(t *testing.T) {
	l := NewLearner(2)
	id := ID{Round: 1, NodeUID: "A"}

	l.ReceiveAccepted("n1", id, "v")
	l.ReceiveAccepted("n1", id, "v")
	l.ReceiveAccepted("n1", id, "v")
	if l.Resolved() {
		t.Fatalf("duplicate reports from the same node must not count twice")
	}

	l.ReceiveAccepted("n2", id, "v")
	if !l.Resolved() {
		t.Fatalf("expected resolution once a second distinct node reports")
	}
}

func TestLearnerIgnoresInputAfterResolution(t *testing.T) {
	l := NewLearner(1)
	id := ID{Round: 1, NodeUID: "A"}
	l.ReceiveAccepted("n1", id, "first")
	if !l.Resolved() {
		t.Fatalf("expected immediate resolution with quorum 1")
	}

	other := ID{Round: 2, NodeUID: "B"}
	l.ReceiveAccepted("n2", other, "second")

	gotID, gotVal := l.FinalValue()
	if gotID != id || gotVal != "first" {
		t.Fatalf("resolved instance must be immutable, got (%v, %v)", gotID, gotVal)
	}
}
