package node

import (
	"encoding/json"
	"fmt"

	"github.com/mnikhil-git/zpax/pkg/paxos"
)

// Topic is the single pub/sub subject every zpax node publishes to and
// subscribes on.
const Topic = "zpax"

// Message type tags. These are the closed set of frame-1 "type"
// values a Node dispatches on.
const (
	TypeValueProposal = "value_proposal"
	TypePrepare       = "paxos_prepare"
	TypePromise       = "paxos_promise"
	TypeAccept        = "paxos_accept"
	TypeAccepted      = "paxos_accepted"
	TypeHeartbeat     = "paxos_heartbeat"
)

// Header is frame 1 of every zpax wire message: the common envelope
// fields (type/node_uid/seq_num) flattened alongside any message-type-
// specific fields (value_proposal's "value", paxos_heartbeat's
// application-supplied heartbeat data) at the same JSON object level,
// exactly as the original implementation merges them into one dict.
type Header struct {
	Type    string
	NodeUID string
	SeqNum  uint64
	Extra   map[string]any
}

// MarshalJSON flattens Extra and the three canonical fields into a
// single JSON object.
func (h Header) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(h.Extra)+3)
	for k, v := range h.Extra {
		m[k] = v
	}
	m["type"] = h.Type
	m["node_uid"] = h.NodeUID
	m["seq_num"] = h.SeqNum
	return json.Marshal(m)
}

// UnmarshalJSON splits the canonical fields back out of the flattened
// object, leaving everything else in Extra.
func (h *Header) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	t, _ := m["type"].(string)
	uid, _ := m["node_uid"].(string)
	seq, _ := m["seq_num"].(float64)

	delete(m, "type")
	delete(m, "node_uid")
	delete(m, "seq_num")

	h.Type = t
	h.NodeUID = uid
	h.SeqNum = uint64(seq)
	h.Extra = m
	return nil
}

// prepareFrame is frame 2 of a paxos_prepare message: a single-element
// tuple carrying the proposal ID being prepared.
type prepareFrame [1]paxos.ID

// promiseFrame is frame 2 of a paxos_promise message: the promised ID,
// the previously-accepted ID (paxos.None if nothing was accepted
// before), and the previously-accepted value (nil if none).
type promiseFrame struct {
	PromisedID        paxos.ID
	PrevAcceptedID    paxos.ID
	PrevAcceptedValue any
}

func (p promiseFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{p.PromisedID, p.PrevAcceptedID, p.PrevAcceptedValue})
}

func (p *promiseFrame) UnmarshalJSON(data []byte) error {
	var tuple [3]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &p.PromisedID); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[1], &p.PrevAcceptedID); err != nil {
		return err
	}
	return json.Unmarshal(tuple[2], &p.PrevAcceptedValue)
}

// acceptFrame is frame 2 of a paxos_accept message: the proposal ID
// being pushed and its value.
type acceptFrame struct {
	ID    paxos.ID
	Value any
}

func (a acceptFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{a.ID, a.Value})
}

func (a *acceptFrame) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &a.ID); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &a.Value)
}

// acceptedFrame is frame 2 of a paxos_accepted message: identical
// shape to acceptFrame, but distinct for readability at call sites.
type acceptedFrame = acceptFrame

// heartbeatFrame is frame 2 of a paxos_heartbeat message: a
// single-element tuple carrying the proposal ID of the node the
// sender believes is the current leader.
type heartbeatFrame [1]paxos.ID

// decodeHeader unmarshals frame 1. Every inbound message has one.
func decodeHeader(frame []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(frame, &h); err != nil {
		return Header{}, fmt.Errorf("decoding header: %w", err)
	}
	return h, nil
}
