package paxos

import "testing"

func TestAcceptorPreparePromisesAndIsMonotone(t *testing.T) {
	a := NewAcceptor()

	id1 := ID{Round: 1, NodeUID: "A"}
	p, ok := a.ReceivePrepare(id1)
	if !ok {
		t.Fatalf("expected first prepare to be promised")
	}
	if !p.AcceptedID.IsNone() {
		t.Fatalf("expected no prior accepted value, got %v", p.AcceptedID)
	}
	if a.PromisedID() != id1 {
		t.Fatalf("expected promisedID %v, got %v", id1, a.PromisedID())
	}

	stale := ID{Round: 0, NodeUID: "Z"}
	if _, ok := a.ReceivePrepare(stale); ok {
		t.Fatalf("expected stale prepare to be ignored")
	}
	if a.PromisedID() != id1 {
		t.Fatalf("promisedID must not regress, got %v", a.PromisedID())
	}
}

func TestAcceptorAcceptRequiresPromiseOrEqual(t *testing.T) {
	a := NewAcceptor()
	id1 := ID{Round: 1, NodeUID: "A"}

	if _, ok := a.ReceivePrepare(id1); !ok {
		t.Fatalf("expected promise")
	}

	// Same ID as promised must be acceptable (>= not >).
	acc, ok := a.ReceiveAccept(id1, "v1")
	if !ok {
		t.Fatalf("expected accept at promised id to succeed")
	}
	if acc.Value != "v1" {
		t.Fatalf("expected accepted value v1, got %v", acc.Value)
	}
	if a.AcceptedID() != id1 || a.AcceptedValue() != "v1" {
		t.Fatalf("acceptor state not updated correctly")
	}

	lower := ID{Round: 0, NodeUID: "Z"}
	if _, ok := a.ReceiveAccept(lower, "v2"); ok {
		t.Fatalf("expected accept below promised id to be rejected")
	}
	if a.AcceptedValue() != "v1" {
		t.Fatalf("accepted value must not change on rejected accept")
	}
}

func TestAcceptorAcceptedNeverPrecedesInvariant(t *testing.T) {
	a := NewAcceptor()
	id1 := ID{Round: 1, NodeUID: "A"}
	id2 := ID{Round: 2, NodeUID: "A"}

	a.ReceivePrepare(id2)
	if _, ok := a.ReceiveAccept(id1, "stale"); ok {
		t.Fatalf("accept below current promise must be rejected")
	}
	if _, ok := a.ReceiveAccept(id2, "fresh"); !ok {
		t.Fatalf("accept at promised id must succeed")
	}
	if a.AcceptedID().Less(a.PromisedID()) == false && !a.AcceptedID().Equal(a.PromisedID()) {
		t.Fatalf("acceptedID must never exceed promisedID")
	}
}
