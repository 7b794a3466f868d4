package paxos

// Promise is the Acceptor's reply to a Prepare, carrying whatever it
// had previously accepted so the Proposer can adopt it.
type Promise struct {
	ID            ID
	AcceptedID    ID
	AcceptedValue any
}

// Accepted is the Acceptor's reply to an Accept request.
type Accepted struct {
	ID    ID
	Value any
}

// Acceptor holds the per-instance promise/accept state. It is a pure
// state machine: every method is a total function of the current state
// and its arguments, with no I/O and no notion of "self" vs "remote".
type Acceptor struct {
	promisedID    ID
	acceptedID    ID
	acceptedValue any
}

// NewAcceptor returns an Acceptor with no promises or accepted value.
func NewAcceptor() *Acceptor {
	return &Acceptor{}
}

// PromisedID returns the greatest ID ever promised, or None.
func (a *Acceptor) PromisedID() ID { return a.promisedID }

// AcceptedID returns the ID of the last accepted value, or None.
func (a *Acceptor) AcceptedID() ID { return a.acceptedID }

// AcceptedValue returns the last accepted value, or nil.
func (a *Acceptor) AcceptedValue() any { return a.acceptedValue }

// ReceivePrepare implements the Acceptor side of Phase 1. It returns
// (promise, true) when id is at least as great as anything already
// promised, updating promisedID as a side effect. Otherwise it returns
// (Promise{}, false); the caller sends no reply, which is equivalent
// to a NACK for this protocol's purposes.
func (a *Acceptor) ReceivePrepare(id ID) (Promise, bool) {
	if id.Less(a.promisedID) {
		return Promise{}, false
	}
	a.promisedID = id
	return Promise{
		ID:            id,
		AcceptedID:    a.acceptedID,
		AcceptedValue: a.acceptedValue,
	}, true
}

// ReceiveAccept implements the Acceptor side of Phase 2. It accepts
// (id, value) when id is at least as great as anything already
// promised, using >= rather than strict > so that a proposer who
// collected a quorum of promises at its own ID can still accept at
// that same ID. On acceptance it updates promisedID and acceptedID/
// acceptedValue and returns (accepted, true); otherwise (Accepted{},
// false) and the caller sends no reply.
func (a *Acceptor) ReceiveAccept(id ID, value any) (Accepted, bool) {
	if id.Less(a.promisedID) {
		return Accepted{}, false
	}
	a.promisedID = id
	a.acceptedID = id
	a.acceptedValue = value
	return Accepted{ID: id, Value: value}, true
}
