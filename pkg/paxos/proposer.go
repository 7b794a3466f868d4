package paxos

// Sender is the narrow outbound capability a Proposer needs: a way to
// broadcast its Phase 1 and Phase 2 messages. It is injected at
// construction time rather than the Proposer holding a back-reference
// to the owning Node, so the Proposer has no notion of sockets,
// topics, or wire encoding.
type Sender interface {
	SendPrepare(id ID)
	SendAccept(id ID, value any)
}

// acceptedPair is the greatest (id, value) a Proposer has learned of
// via a promise in the current round.
type acceptedPair struct {
	id    ID
	value any
}

// Proposer drives Phase 1 (prepare/promise) and Phase 2 (accept) for a
// single instance. It is a pure state machine aside from the injected
// Sender, which it calls synchronously to emit outbound messages.
type Proposer struct {
	nodeUID    string
	quorumSize int
	sender     Sender

	currentID        ID
	value            any
	promisesReceived map[string]struct{}
	highestAccepted  *acceptedPair

	leader bool
	active bool

	// onQuorum, if set, is invoked the instant a prepare round
	// collects its quorumSize-th promise, after value adoption but
	// before SendAccept. HeartbeatProposer uses this to detect
	// leadership acquisition "on quorum, not on receipt".
	onQuorum func()
}

// NewProposer returns a Proposer for nodeUID that requires quorumSize
// promises/accepts to make progress, sending outbound messages via
// sender.
func NewProposer(nodeUID string, quorumSize int, sender Sender) *Proposer {
	return &Proposer{
		nodeUID:    nodeUID,
		quorumSize: quorumSize,
		sender:     sender,
	}
}

// NodeUID returns the owning node's identifier.
func (p *Proposer) NodeUID() string { return p.nodeUID }

// CurrentID returns the ProposalID this proposer is currently pushing.
func (p *Proposer) CurrentID() ID { return p.currentID }

// Value returns the latched proposal value, or nil if none is set yet.
func (p *Proposer) Value() any { return p.value }

// Leader reports this proposer's current leadership opinion.
func (p *Proposer) Leader() bool { return p.leader }

// Active reports whether the proposer is currently attempting
// progress: it is set when a prepare round starts and cleared once the
// proposer emits SendAccept.
func (p *Proposer) Active() bool { return p.active }

// SetProposal latches value as the value this proposer will push,
// unless a value is already latched — set_proposal never overwrites a
// value once one is set. It is the mechanism by which a client request
// reaches a proposer; adoption of a previously-accepted value learned
// via promise overrides this unconditionally (see ReceivePromise). If
// this proposer already holds a promise quorum at currentID (i.e. it
// is leader), the value can go straight to Phase 2 — there is no
// prepare round left to wait on — so SetProposal emits SendAccept
// immediately instead of waiting on a ReceivePromise that will never
// come.
func (p *Proposer) SetProposal(value any) {
	if p.value != nil {
		return
	}
	p.value = value
	if p.leader {
		p.active = false
		p.sender.SendAccept(p.currentID, p.value)
	}
}

// Prepare begins Phase 1: choose a round strictly greater than any
// this proposer has previously used, reset the promise-collection
// state for the new round, and emit SendPrepare.
func (p *Proposer) Prepare() {
	p.PrepareAtRound(p.currentID.Round + 1)
}

// PrepareAtRound begins Phase 1 at an explicit round number, which
// must be strictly greater than CurrentID().Round — callers (notably
// HeartbeatProposer, seizing leadership from a known-higher round)
// compute the round themselves rather than always just incrementing.
func (p *Proposer) PrepareAtRound(round uint64) {
	p.currentID = ID{Round: round, NodeUID: p.nodeUID}
	p.promisesReceived = make(map[string]struct{})
	p.highestAccepted = nil
	p.active = true
	p.sender.SendPrepare(p.currentID)
}

// ReceivePromise processes a Promise from fromUID. Stale promises (not
// for currentID) and duplicates from a node already counted are
// ignored. Once quorumSize distinct promises have been collected for
// currentID, any previously-accepted value reported by a promise
// unconditionally overrides this proposer's own latched value — the
// core safety mechanism of Paxos — and, if a value is latched (either
// the adopted one or this proposer's own), SendAccept is emitted.
func (p *Proposer) ReceivePromise(fromUID string, promisedID ID, prevAcceptedID ID, prevAcceptedValue any) {
	if !promisedID.Equal(p.currentID) {
		return
	}
	if _, already := p.promisesReceived[fromUID]; already {
		return
	}

	p.promisesReceived[fromUID] = struct{}{}

	if !prevAcceptedID.IsNone() {
		if p.highestAccepted == nil || p.highestAccepted.id.Less(prevAcceptedID) {
			p.highestAccepted = &acceptedPair{id: prevAcceptedID, value: prevAcceptedValue}
		}
	}

	if len(p.promisesReceived) != p.quorumSize {
		return
	}

	if p.highestAccepted != nil {
		p.value = p.highestAccepted.value
	}

	if p.onQuorum != nil {
		p.onQuorum()
	}

	if p.value != nil {
		p.active = false
		p.sender.SendAccept(p.currentID, p.value)
	}
}
