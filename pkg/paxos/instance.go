package paxos

import "time"

// ProposerCarry is the slice of a HeartbeatProposer's state that
// survives instance advancement: the proposal round counter and the
// leadership opinion. A stable leader does not have to re-win an
// election for every new slot.
type ProposerCarry struct {
	CurrentRound      uint64
	Leader            bool
	LeaderProposalID  ID
	LastHeartbeatTime time.Time
}

// Carry snapshots hp's carry-forward state for seeding the Proposer of
// the next instance.
func (hp *HeartbeatProposer) Carry() ProposerCarry {
	return ProposerCarry{
		CurrentRound:      hp.currentID.Round,
		Leader:            hp.leader,
		LeaderProposalID:  hp.leaderProposalID,
		LastHeartbeatTime: hp.lastHeartbeatTime,
	}
}

// seedFrom applies carry to a newly constructed HeartbeatProposer,
// before it has handled any message of its own instance.
func (hp *HeartbeatProposer) seedFrom(carry ProposerCarry) {
	hp.currentID = ID{Round: carry.CurrentRound, NodeUID: hp.nodeUID}
	hp.leader = carry.Leader
	hp.leaderProposalID = carry.LeaderProposalID
	if !carry.LastHeartbeatTime.IsZero() {
		hp.lastHeartbeatTime = carry.LastHeartbeatTime
	}
}

// NewCarriedHeartbeatProposer is like NewHeartbeatProposer but seeds
// the proposal round and leadership opinion from a prior instance's
// Proposer, per the Multi-Paxos carry-forward rule: leadership
// persists across slots so a stable leader need not re-run Phase 1 for
// every new instance.
func NewCarriedHeartbeatProposer(nodeUID string, quorumSize int, sender HeartbeatSender, callbacks HeartbeatCallbacks, hbPeriod, livenessWindow time.Duration, now time.Time, carry ProposerCarry) *HeartbeatProposer {
	hp := NewHeartbeatProposer(nodeUID, quorumSize, sender, callbacks, hbPeriod, livenessWindow, now)
	hp.seedFrom(carry)
	return hp
}

// SingleInstance bundles the Proposer, Acceptor, and Learner that
// together decide the value of one sequence slot. It is owned
// exclusively by the MultiPaxos that created it and is dropped once
// superseded by instance advancement.
type SingleInstance struct {
	InstanceNumber uint64
	Proposer       *HeartbeatProposer
	Acceptor       *Acceptor
	Learner        *Learner
}
