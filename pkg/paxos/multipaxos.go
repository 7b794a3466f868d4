package paxos

// InstanceFactory builds a fresh SingleInstance for instanceNumber,
// seeding its Proposer's round/leadership opinion from carry. The
// factory closes over whatever the caller needs to build a Sender and
// HeartbeatCallbacks bound to that particular node (see pkg/node).
type InstanceFactory func(instanceNumber uint64, carry ProposerCarry) *SingleInstance

// ResolutionFunc is invoked once, synchronously, the instant an
// instance resolves — before MultiPaxos advances to the next slot.
type ResolutionFunc func(instanceNumber uint64, value any)

// MultiPaxos indexes Paxos instances by sequence number and advances
// the open instance by exactly one each time the current instance
// resolves. It is the single point through which a Node routes
// per-instance operations, rejecting (silently, for the core's
// purposes — see pkg/node for the advisory callbacks) anything whose
// sequence number does not match the instance currently open.
type MultiPaxos struct {
	nodeUID    string
	quorumSize int
	factory    InstanceFactory
	onResolved ResolutionFunc

	currentInstanceNumber uint64
	current               *SingleInstance
}

// NewMultiPaxos constructs a MultiPaxos whose first open instance is
// startInstanceNumber.
func NewMultiPaxos(nodeUID string, quorumSize int, startInstanceNumber uint64, factory InstanceFactory, onResolved ResolutionFunc) *MultiPaxos {
	mp := &MultiPaxos{
		nodeUID:               nodeUID,
		quorumSize:            quorumSize,
		factory:               factory,
		onResolved:            onResolved,
		currentInstanceNumber: startInstanceNumber,
	}
	mp.current = factory(startInstanceNumber, ProposerCarry{})
	return mp
}

// CurrentInstanceNumber returns the slot currently open.
func (mp *MultiPaxos) CurrentInstanceNumber() uint64 { return mp.currentInstanceNumber }

// Proposer returns the current instance's Proposer.
func (mp *MultiPaxos) Proposer() *HeartbeatProposer { return mp.current.Proposer }

// Acceptor returns the current instance's Acceptor.
func (mp *MultiPaxos) Acceptor() *Acceptor { return mp.current.Acceptor }

// Learner returns the current instance's Learner.
func (mp *MultiPaxos) Learner() *Learner { return mp.current.Learner }

// HaveLeadership delegates to the current instance's Proposer.
func (mp *MultiPaxos) HaveLeadership() bool { return mp.current.Proposer.Leader() }

// SetInstanceNumber declares the open slot to be n, constructing a
// fresh SingleInstance — seeded with the outgoing Proposer's
// carry-forward state — if n differs from the currently open slot.
// Used by a Node catching up to a sequence number it observed but had
// not yet reached locally.
func (mp *MultiPaxos) SetInstanceNumber(n uint64) {
	if n == mp.currentInstanceNumber {
		return
	}
	carry := mp.current.Proposer.Carry()
	mp.currentInstanceNumber = n
	mp.current = mp.factory(n, carry)
}

// SetProposal forwards value to the current instance's Proposer iff
// seq matches the open instance.
func (mp *MultiPaxos) SetProposal(seq uint64, value any) {
	if seq != mp.currentInstanceNumber {
		return
	}
	mp.current.Proposer.SetProposal(value)
}

// RecvPrepare forwards a Prepare to the current instance's Acceptor
// iff seq matches the open instance.
func (mp *MultiPaxos) RecvPrepare(seq uint64, id ID) (Promise, bool) {
	if seq != mp.currentInstanceNumber {
		return Promise{}, false
	}
	return mp.current.Acceptor.ReceivePrepare(id)
}

// RecvPromise forwards a Promise to the current instance's Proposer
// iff seq matches the open instance.
func (mp *MultiPaxos) RecvPromise(seq uint64, fromUID string, promisedID, prevAcceptedID ID, prevAcceptedValue any) {
	if seq != mp.currentInstanceNumber {
		return
	}
	mp.current.Proposer.ReceivePromise(fromUID, promisedID, prevAcceptedID, prevAcceptedValue)
}

// RecvAcceptRequest forwards an Accept request to the current
// instance's Acceptor iff seq matches the open instance.
func (mp *MultiPaxos) RecvAcceptRequest(seq uint64, id ID, value any) (Accepted, bool) {
	if seq != mp.currentInstanceNumber {
		return Accepted{}, false
	}
	return mp.current.Acceptor.ReceiveAccept(id, value)
}

// RecvAccepted forwards an Accepted notification to the current
// instance's Learner iff seq matches the open instance. If this is
// the message that first drives the instance to resolution,
// onResolved fires synchronously and MultiPaxos advances to
// instanceNumber+1, constructing the next SingleInstance with the
// outgoing Proposer's round and leadership opinion carried forward.
func (mp *MultiPaxos) RecvAccepted(seq uint64, fromNodeUID string, id ID, value any) {
	if seq != mp.currentInstanceNumber {
		return
	}

	learner := mp.current.Learner
	wasResolved := learner.Resolved()
	learner.ReceiveAccepted(fromNodeUID, id, value)

	if wasResolved || !learner.Resolved() {
		return
	}

	resolvedInstance := mp.currentInstanceNumber
	_, resolvedValue := learner.FinalValue()

	if mp.onResolved != nil {
		mp.onResolved(resolvedInstance, resolvedValue)
	}

	carry := mp.current.Proposer.Carry()
	mp.currentInstanceNumber = resolvedInstance + 1
	mp.current = mp.factory(mp.currentInstanceNumber, carry)
}
