package paxos

import "time"

// Default heartbeat timing. LivenessWindow must exceed HBPeriod by a
// safety margin (3x here) so that ordinary network jitter never looks
// like a dead leader.
const (
	DefaultHBPeriod       = 500 * time.Millisecond
	DefaultLivenessWindow = 1500 * time.Millisecond
)

// HeartbeatSender extends Sender with the heartbeat broadcast a leader
// uses to keep the rest of the cluster from trying to seize
// leadership out from under it.
type HeartbeatSender interface {
	Sender
	SendHeartbeat(leaderID ID)
}

// HeartbeatCallbacks are the leadership-transition notifications a
// HeartbeatProposer raises. All are optional from the caller's
// perspective — use NoopHeartbeatCallbacks{} to ignore all of them.
type HeartbeatCallbacks interface {
	OnLeadershipAcquired()
	OnLeadershipLost()
	OnLeadershipChanged(prevLeaderUID, newLeaderUID string)
}

// NoopHeartbeatCallbacks implements HeartbeatCallbacks with no-ops, so
// callers only need to override what they care about by embedding it.
type NoopHeartbeatCallbacks struct{}

func (NoopHeartbeatCallbacks) OnLeadershipAcquired() {}
func (NoopHeartbeatCallbacks) OnLeadershipLost()     {}
func (NoopHeartbeatCallbacks) OnLeadershipChanged(prevLeaderUID, newLeaderUID string) {
}

// HeartbeatProposer layers heartbeat-based leader election on top of
// the base Proposer. Leadership here is an *opinion*, used only to
// avoid dueling proposers; it has no bearing on Paxos safety, which
// the base Proposer/Acceptor/Learner enforce unconditionally.
type HeartbeatProposer struct {
	*Proposer

	sender    HeartbeatSender
	callbacks HeartbeatCallbacks

	hbPeriod       time.Duration
	livenessWindow time.Duration

	leaderProposalID  ID
	lastHeartbeatTime time.Time
}

// NewHeartbeatProposer returns a HeartbeatProposer for nodeUID. A zero
// hbPeriod/livenessWindow falls back to DefaultHBPeriod/
// DefaultLivenessWindow. now is the construction time, used to seed
// lastHeartbeatTime so poll_liveness does not fire spuriously before
// any heartbeat has ever been seen.
func NewHeartbeatProposer(nodeUID string, quorumSize int, sender HeartbeatSender, callbacks HeartbeatCallbacks, hbPeriod, livenessWindow time.Duration, now time.Time) *HeartbeatProposer {
	if hbPeriod <= 0 {
		hbPeriod = DefaultHBPeriod
	}
	if livenessWindow <= 0 {
		livenessWindow = DefaultLivenessWindow
	}
	if callbacks == nil {
		callbacks = NoopHeartbeatCallbacks{}
	}

	hp := &HeartbeatProposer{
		Proposer:          NewProposer(nodeUID, quorumSize, sender),
		sender:            sender,
		callbacks:         callbacks,
		hbPeriod:          hbPeriod,
		livenessWindow:    livenessWindow,
		lastHeartbeatTime: now,
	}
	hp.Proposer.onQuorum = hp.onPrepareQuorum
	return hp
}

// HBPeriod returns the configured heartbeat pulse interval.
func (hp *HeartbeatProposer) HBPeriod() time.Duration { return hp.hbPeriod }

// LivenessWindow returns the configured leader-liveness timeout.
func (hp *HeartbeatProposer) LivenessWindow() time.Duration { return hp.livenessWindow }

// LeaderProposalID returns the ID of the believed current leader.
func (hp *HeartbeatProposer) LeaderProposalID() ID { return hp.leaderProposalID }

// onPrepareQuorum fires when this proposer's current prepare round
// collects its quorum-th promise. Acquiring leadership happens here,
// not on promise receipt, per the heartbeat design.
func (hp *HeartbeatProposer) onPrepareQuorum() {
	hp.leader = true
	hp.leaderProposalID = hp.currentID
	hp.callbacks.OnLeadershipAcquired()
}

// Pulse emits a heartbeat carrying this proposer's current ID. Callers
// should invoke this on a period of HBPeriod only while Leader() is
// true — pulsing is what keeps the rest of the cluster from seizing
// leadership.
func (hp *HeartbeatProposer) Pulse() {
	if !hp.leader {
		return
	}
	hp.sender.SendHeartbeat(hp.currentID)
}

// PollLiveness should be invoked unconditionally on a period of
// LivenessWindow. If no heartbeat has been observed within the
// liveness window and this proposer does not believe itself to be
// leader, it attempts to seize leadership by starting a fresh prepare
// round at a round strictly greater than both its own prior round and
// the currently-known leader's round. A proposer that already believes
// itself leader does nothing here — its own pulses keep it alive.
func (hp *HeartbeatProposer) PollLiveness(now time.Time) {
	if hp.leader {
		return
	}
	if now.Sub(hp.lastHeartbeatTime) <= hp.livenessWindow {
		return
	}
	round := hp.currentID.Round
	if hp.leaderProposalID.Round > round {
		round = hp.leaderProposalID.Round
	}
	hp.PrepareAtRound(round + 1)
}

// ReceiveHeartbeat processes an observed heartbeat from leaderID at
// time now. If leaderID is at least as great as the believed leader,
// the belief and last-seen time are refreshed. If this proposer had
// believed itself leader and leaderID names a strictly greater
// proposer, leadership is lost: OnLeadershipLost fires, followed by
// OnLeadershipChanged(prev, new).
func (hp *HeartbeatProposer) ReceiveHeartbeat(leaderID ID, now time.Time) {
	if leaderID.Less(hp.leaderProposalID) {
		return
	}

	prevLeaderUID := hp.leaderProposalID.NodeUID
	wasLeader := hp.leader

	hp.leaderProposalID = leaderID
	hp.lastHeartbeatTime = now

	if wasLeader && hp.leaderProposalID.NodeUID != hp.nodeUID {
		hp.leader = false
		hp.callbacks.OnLeadershipLost()
		hp.callbacks.OnLeadershipChanged(prevLeaderUID, leaderID.NodeUID)
	}
}
