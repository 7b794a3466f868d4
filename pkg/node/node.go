/*
Package node wires the pure pkg/paxos state machine to a pkg/transport
broker: it frames Paxos messages onto the wire, dispatches inbound
frames back into the state machine, and layers the retry/heartbeat
scheduling a live cluster needs on top. Application code drives it
through ProposeValue and observes it through Callbacks.
*/
package node

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	nodeerrors "github.com/mnikhil-git/zpax/pkg/errors"
	"github.com/mnikhil-git/zpax/pkg/paxos"
	"github.com/mnikhil-git/zpax/pkg/store"
	"github.com/mnikhil-git/zpax/pkg/transport"
)

// Config configures a Node.
type Config struct {
	NodeUID        string
	QuorumSize     int
	SequenceNumber uint64
	Broker         transport.Broker
	Callbacks      Callbacks
	Store          store.Store // optional
	Logger         *slog.Logger
	Timers         TimerService // optional; defaults to NewRealTimerService()
	HBPeriod       time.Duration
	LivenessWindow time.Duration
}

// Node is one replica of a Multi-Paxos cluster communicating over a
// broadcast pub/sub topic.
type Node struct {
	nodeUID    string
	quorumSize int

	broker   transport.Broker
	producer transport.Producer
	consumer transport.Consumer

	callbacks Callbacks
	store     store.Store
	logger    *slog.Logger
	timers    TimerService

	hbPeriod       time.Duration
	livenessWindow time.Duration

	mu              sync.Mutex
	sequenceNumber  uint64
	mpax            *paxos.MultiPaxos
	acceptRetry     Handle
	heartbeatPulser Handle
	heartbeatPoller Handle
}

var _ paxos.HeartbeatSender = (*Node)(nil)
var _ paxos.HeartbeatCallbacks = (*Node)(nil)

// New constructs a Node. It does not yet publish or consume anything —
// call Start for that.
func New(cfg Config) (*Node, error) {
	if cfg.NodeUID == "" {
		return nil, nodeerrors.New(nodeerrors.CodeInvalidArgument, "node UID must not be empty", nil)
	}
	if cfg.QuorumSize <= 0 {
		return nil, nodeerrors.New(nodeerrors.CodeInvalidArgument, "quorum size must be positive", nil)
	}
	if cfg.Broker == nil {
		return nil, nodeerrors.New(nodeerrors.CodeInvalidArgument, "broker must not be nil", nil)
	}

	callbacks := cfg.Callbacks
	if callbacks == nil {
		callbacks = NoopCallbacks{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timers := cfg.Timers
	if timers == nil {
		timers = NewRealTimerService()
	}
	hbPeriod := cfg.HBPeriod
	if hbPeriod <= 0 {
		hbPeriod = paxos.DefaultHBPeriod
	}
	livenessWindow := cfg.LivenessWindow
	if livenessWindow <= 0 {
		livenessWindow = paxos.DefaultLivenessWindow
	}

	n := &Node{
		nodeUID:        cfg.NodeUID,
		quorumSize:     cfg.QuorumSize,
		broker:         cfg.Broker,
		callbacks:      callbacks,
		store:          cfg.Store,
		logger:         logger.With("node_uid", cfg.NodeUID),
		timers:         timers,
		hbPeriod:       hbPeriod,
		livenessWindow: livenessWindow,
		sequenceNumber: cfg.SequenceNumber,
	}

	n.mpax = paxos.NewMultiPaxos(cfg.NodeUID, cfg.QuorumSize, cfg.SequenceNumber, n.instanceFactory, n.onResolved)
	return n, nil
}

func (n *Node) instanceFactory(instanceNumber uint64, carry paxos.ProposerCarry) *paxos.SingleInstance {
	return &paxos.SingleInstance{
		InstanceNumber: instanceNumber,
		Proposer:       paxos.NewCarriedHeartbeatProposer(n.nodeUID, n.quorumSize, n, n, n.hbPeriod, n.livenessWindow, time.Now(), carry),
		Acceptor:       paxos.NewAcceptor(),
		Learner:        paxos.NewLearner(n.quorumSize),
	}
}

// NodeUID returns this node's identifier.
func (n *Node) NodeUID() string { return n.nodeUID }

// SequenceNumber returns the instance number currently open.
func (n *Node) SequenceNumber() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sequenceNumber
}

// HaveLeadership reports this node's current leadership opinion.
func (n *Node) HaveLeadership() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mpax.HaveLeadership()
}

// Start subscribes to the broadcast topic and begins the heartbeat
// liveness poller. The consumer loop runs until ctx is cancelled (or
// the broker itself is closed); Shutdown closes the consumer, which
// stops delivery to this node but does not end the loop.
func (n *Node) Start(ctx context.Context) error {
	producer, err := n.broker.Producer(Topic)
	if err != nil {
		return err
	}
	consumer, err := n.broker.Consumer(Topic, n.nodeUID)
	if err != nil {
		producer.Close()
		return err
	}

	n.mu.Lock()
	n.producer = producer
	n.consumer = consumer
	n.heartbeatPoller = n.timers.SchedulePeriodic(n.livenessWindow, n.pollTick)
	n.mu.Unlock()

	go func() {
		if err := consumer.Consume(ctx, n.handleMessage); err != nil {
			n.logger.Error("consume loop exited", "err", err)
		}
	}()
	return nil
}

// Shutdown stops timers, notifies Callbacks.OnShutdown, and closes the
// transport.
func (n *Node) Shutdown() error {
	n.mu.Lock()
	n.callbacks.OnShutdown()
	n.cancelAcceptRetryLocked()
	n.cancelHeartbeatPulserLocked()
	if n.heartbeatPoller != nil {
		n.timers.Cancel(n.heartbeatPoller)
		n.heartbeatPoller = nil
	}
	producer, consumer := n.producer, n.consumer
	n.mu.Unlock()

	var firstErr error
	if producer != nil {
		if err := producer.Close(); err != nil {
			firstErr = err
		}
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ProposeValue asks the cluster to agree on value for instance
// sequenceNumber. It fails if sequenceNumber is not the instance
// currently open, or if a value has already been proposed or accepted
// for it.
func (n *Node) ProposeValue(ctx context.Context, sequenceNumber uint64, value any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if sequenceNumber != n.sequenceNumber {
		return nodeerrors.SequenceMismatch(n.sequenceNumber)
	}
	if n.mpax.Proposer().Value() != nil {
		return nodeerrors.ValueAlreadyProposed()
	}
	if n.mpax.Acceptor().AcceptedValue() != nil {
		return nodeerrors.ValueAlreadyProposed()
	}

	if err := n.publishLocked(ctx, TypeValueProposal, map[string]any{"value": value}, nil); err != nil {
		return err
	}
	n.mpax.SetProposal(n.sequenceNumber, value)
	return nil
}

// SlewSequenceNumber forcibly advances this node's notion of the
// currently-open instance, e.g. after an out-of-band catch-up read. It
// is a no-op if newSequenceNumber does not exceed the current one.
func (n *Node) SlewSequenceNumber(newSequenceNumber uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if newSequenceNumber <= n.sequenceNumber {
		return
	}
	n.sequenceNumber = newSequenceNumber

	if n.mpax.HaveLeadership() {
		n.onLeadershipLostLocked()
	}
	n.mpax.SetInstanceNumber(n.sequenceNumber)
}

// ---------------------------------------------------------------------
// Inbound dispatch
// ---------------------------------------------------------------------

func (n *Node) handleMessage(_ context.Context, msg *transport.Message) error {
	if len(msg.Frames) == 0 {
		n.logger.Warn("dropping message with no frames")
		return nil
	}

	header, err := decodeHeader(msg.Frames[0])
	if err != nil {
		n.logger.Warn("dropping malformed header", "err", err)
		return nil
	}
	if header.Type == "" {
		n.logger.Warn("dropping message with no type")
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	switch header.Type {
	case TypeValueProposal:
		n.onValueProposalLocked(header)
	case TypePrepare:
		if n.checkSequenceLocked(header) {
			n.onPrepareLocked(header, frameAt(msg, 1))
		}
	case TypePromise:
		if n.checkSequenceLocked(header) {
			n.onPromiseLocked(header, frameAt(msg, 1))
		}
	case TypeAccept:
		if n.checkSequenceLocked(header) {
			n.onAcceptLocked(header, frameAt(msg, 1))
		}
	case TypeAccepted:
		if n.checkSequenceLocked(header) {
			n.onAcceptedLocked(header, frameAt(msg, 1))
		}
	case TypeHeartbeat:
		// Heartbeats are processed unconditionally, not gated behind
		// checkSequenceLocked: leadership carries across instances, so
		// a node that is momentarily behind (or ahead) must still keep
		// hearing the current leader's heartbeats, or it will time out
		// in PollLiveness and try to seize leadership at a higher
		// round purely because it has not caught up yet.
		n.onHeartbeatMessageLocked(header, frameAt(msg, 1))
	default:
		n.logger.Warn("dropping message with unrecognized type", "type", header.Type)
	}
	return nil
}

func frameAt(msg *transport.Message, i int) []byte {
	if i >= len(msg.Frames) {
		return nil
	}
	return msg.Frames[i]
}

// checkSequenceLocked reports whether header's sequence number matches
// this node's own, notifying Callbacks either way it doesn't.
func (n *Node) checkSequenceLocked(header Header) bool {
	switch {
	case header.SeqNum > n.sequenceNumber:
		n.callbacks.OnBehindInSequence()
	case header.SeqNum < n.sequenceNumber:
		n.callbacks.OnOtherNodeBehindInSequence(header.NodeUID)
	}
	return header.SeqNum == n.sequenceNumber
}

func (n *Node) onValueProposalLocked(header Header) {
	if header.SeqNum != n.sequenceNumber {
		return
	}
	if n.mpax.Acceptor().AcceptedValue() != nil {
		return
	}
	value, ok := header.Extra["value"]
	if !ok {
		return
	}
	n.mpax.SetProposal(n.sequenceNumber, value)
}

func (n *Node) onPrepareLocked(header Header, frame []byte) {
	var pf prepareFrame
	if err := json.Unmarshal(frame, &pf); err != nil {
		n.logger.Warn("dropping malformed prepare", "err", err)
		return
	}
	promise, ok := n.mpax.RecvPrepare(header.SeqNum, pf[0])
	if !ok {
		return
	}
	_ = n.publishLocked(context.Background(), TypePromise, nil, promiseFrame{
		PromisedID:        promise.ID,
		PrevAcceptedID:    promise.AcceptedID,
		PrevAcceptedValue: promise.AcceptedValue,
	})
}

func (n *Node) onPromiseLocked(header Header, frame []byte) {
	var pf promiseFrame
	if err := json.Unmarshal(frame, &pf); err != nil {
		n.logger.Warn("dropping malformed promise", "err", err)
		return
	}
	n.mpax.RecvPromise(header.SeqNum, header.NodeUID, pf.PromisedID, pf.PrevAcceptedID, pf.PrevAcceptedValue)
}

func (n *Node) onAcceptLocked(header Header, frame []byte) {
	var af acceptFrame
	if err := json.Unmarshal(frame, &af); err != nil {
		n.logger.Warn("dropping malformed accept", "err", err)
		return
	}
	accepted, ok := n.mpax.RecvAcceptRequest(header.SeqNum, af.ID, af.Value)
	if !ok {
		return
	}
	_ = n.publishLocked(context.Background(), TypeAccepted, nil, acceptedFrame{ID: accepted.ID, Value: accepted.Value})
}

func (n *Node) onAcceptedLocked(header Header, frame []byte) {
	var af acceptedFrame
	if err := json.Unmarshal(frame, &af); err != nil {
		n.logger.Warn("dropping malformed accepted", "err", err)
		return
	}
	n.mpax.RecvAccepted(header.SeqNum, header.NodeUID, af.ID, af.Value)
}

func (n *Node) onHeartbeatMessageLocked(header Header, frame []byte) {
	var hf heartbeatFrame
	if err := json.Unmarshal(frame, &hf); err != nil {
		n.logger.Warn("dropping malformed heartbeat", "err", err)
		return
	}
	n.mpax.Proposer().ReceiveHeartbeat(hf[0], time.Now())
	n.callbacks.OnHeartbeat(header)
}

// ---------------------------------------------------------------------
// paxos.HeartbeatSender — invoked synchronously by pkg/paxos while n.mu
// is already held by the entry point that triggered it.
// ---------------------------------------------------------------------

// SendPrepare implements paxos.Sender.
func (n *Node) SendPrepare(id paxos.ID) {
	_ = n.publishLocked(context.Background(), TypePrepare, nil, prepareFrame{id})
}

// SendAccept implements paxos.Sender. It gates sending on this node
// still believing itself leader, and schedules itself to re-fire every
// HBPeriod until cancelled, matching the accept-retry behavior a live
// leader needs to push an accept through message loss.
func (n *Node) SendAccept(id paxos.ID, value any) {
	if !n.mpax.HaveLeadership() {
		return
	}
	if n.acceptRetry != nil {
		return
	}

	_ = n.publishLocked(context.Background(), TypeAccept, nil, acceptFrame{ID: id, Value: value})

	n.acceptRetry = n.timers.ScheduleAfter(n.hbPeriod, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.acceptRetry = nil
		n.SendAccept(id, value)
	})
}

// SendHeartbeat implements paxos.HeartbeatSender.
func (n *Node) SendHeartbeat(leaderID paxos.ID) {
	_ = n.publishLocked(context.Background(), TypeHeartbeat, n.callbacks.GetHeartbeatData(), heartbeatFrame{leaderID})
}

// ---------------------------------------------------------------------
// paxos.HeartbeatCallbacks
// ---------------------------------------------------------------------

// OnLeadershipAcquired implements paxos.HeartbeatCallbacks.
func (n *Node) OnLeadershipAcquired() {
	n.heartbeatPulser = n.timers.SchedulePeriodic(n.hbPeriod, n.pulseTick)
	n.callbacks.OnLeadershipAcquired()
}

// OnLeadershipLost implements paxos.HeartbeatCallbacks.
func (n *Node) OnLeadershipLost() {
	n.onLeadershipLostLocked()
}

func (n *Node) onLeadershipLostLocked() {
	n.cancelAcceptRetryLocked()
	n.cancelHeartbeatPulserLocked()
	n.callbacks.OnLeadershipLost()
}

// OnLeadershipChanged implements paxos.HeartbeatCallbacks.
func (n *Node) OnLeadershipChanged(prevLeaderUID, newLeaderUID string) {
	n.callbacks.OnLeadershipChanged(prevLeaderUID, newLeaderUID)
}

func (n *Node) cancelAcceptRetryLocked() {
	if n.acceptRetry != nil {
		n.timers.Cancel(n.acceptRetry)
		n.acceptRetry = nil
	}
}

func (n *Node) cancelHeartbeatPulserLocked() {
	if n.heartbeatPulser != nil {
		n.timers.Cancel(n.heartbeatPulser)
		n.heartbeatPulser = nil
	}
}

// ---------------------------------------------------------------------
// Timer entry points — each acquires n.mu itself since timers fire on
// their own goroutine.
// ---------------------------------------------------------------------

func (n *Node) pulseTick() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mpax.Proposer().Pulse()
}

func (n *Node) pollTick() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mpax.Proposer().PollLiveness(time.Now())
}

// ---------------------------------------------------------------------
// Resolution / persistence
// ---------------------------------------------------------------------

// onResolved is MultiPaxos's ResolutionFunc; it runs synchronously
// inside n.mu, one level up from onAcceptedLocked.
func (n *Node) onResolved(instanceNumber uint64, value any) {
	n.cancelAcceptRetryLocked()
	n.sequenceNumber = instanceNumber + 1

	if n.store != nil {
		key := fmt.Sprintf("instance-%d", instanceNumber)
		if err := n.store.Commit(context.Background(), key, fmt.Sprint(value), instanceNumber); err != nil {
			n.logger.Error("failed to persist resolved value", "instance", instanceNumber, "err", err)
		}
	}

	n.callbacks.OnProposalResolution(instanceNumber, value)
}

// ---------------------------------------------------------------------
// Wire framing
// ---------------------------------------------------------------------

func (n *Node) publishLocked(ctx context.Context, msgType string, extra map[string]any, payload any) error {
	header := Header{Type: msgType, NodeUID: n.nodeUID, SeqNum: n.sequenceNumber, Extra: extra}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nodeerrors.Wrap(err, "encoding header")
	}

	frames := [][]byte{headerJSON}
	if payload != nil {
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return nodeerrors.Wrap(err, "encoding payload")
		}
		frames = append(frames, payloadJSON)
	}

	if n.producer == nil {
		return nodeerrors.TransportClosed()
	}
	return n.producer.Publish(ctx, frames)
}
