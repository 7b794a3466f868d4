package node

// Callbacks are the application-level hooks a Node invokes as Paxos
// state changes. All are optional — embed NoopCallbacks and override
// only what matters.
type Callbacks interface {
	// OnLeadershipAcquired is called when this node wins heartbeat
	// leader election.
	OnLeadershipAcquired()

	// OnLeadershipLost is called when this node stops believing
	// itself to be leader.
	OnLeadershipLost()

	// OnLeadershipChanged is called right after OnLeadershipLost when
	// this node, believing itself leader, hears a heartbeat from a
	// strictly greater leader. It is not called when this node
	// acquires leadership, nor when the believed leader changes
	// between other nodes.
	OnLeadershipChanged(prevLeaderUID, newLeaderUID string)

	// OnBehindInSequence is called when an inbound message carries a
	// sequence number ahead of this node's own — the caller should
	// catch up, typically via SlewSequenceNumber once it knows the
	// correct value from an out-of-band source.
	OnBehindInSequence()

	// OnOtherNodeBehindInSequence is called when an inbound message
	// from nodeUID carries a sequence number behind this node's own.
	OnOtherNodeBehindInSequence(nodeUID string)

	// OnProposalResolution is called exactly once per instance, the
	// moment that instance's value is agreed upon.
	OnProposalResolution(instanceNumber uint64, value any)

	// OnHeartbeat is called whenever this node observes any node's
	// heartbeat, successful leader or not, with the header fields the
	// heartbeat carried.
	OnHeartbeat(header Header)

	// OnShutdown is called immediately before a Node tears down its
	// transport and timers.
	OnShutdown()

	// GetHeartbeatData returns key/value pairs to fold into this
	// node's outgoing heartbeat messages.
	GetHeartbeatData() map[string]any
}

// NoopCallbacks implements Callbacks with no-ops; embed it to pick and
// choose overrides.
type NoopCallbacks struct{}

func (NoopCallbacks) OnLeadershipAcquired()                                  {}
func (NoopCallbacks) OnLeadershipLost()                                      {}
func (NoopCallbacks) OnLeadershipChanged(prevLeaderUID, newLeaderUID string) {}
func (NoopCallbacks) OnBehindInSequence()                                    {}
func (NoopCallbacks) OnOtherNodeBehindInSequence(nodeUID string)             {}
func (NoopCallbacks) OnProposalResolution(instanceNumber uint64, value any)  {}
func (NoopCallbacks) OnHeartbeat(header Header)                             {}
func (NoopCallbacks) OnShutdown()                                            {}
func (NoopCallbacks) GetHeartbeatData() map[string]any                      { return nil }
