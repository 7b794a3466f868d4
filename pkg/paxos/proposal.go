package paxos

import (
	"encoding/json"
	"fmt"
)

// ID totally orders proposals within a single instance as the pair
// (Round, NodeUID), compared lexicographically. Round numbers begin at
// 1; the zero value is None and precedes every real ID.
type ID struct {
	Round   uint64
	NodeUID string
}

// None is the sentinel "no proposal" value. A zero Round never occurs
// in a real proposal, so IsNone is exactly Round == 0.
var None = ID{}

// IsNone reports whether id is the sentinel "no proposal" value.
func (id ID) IsNone() bool {
	return id.Round == 0
}

// Less reports whether id strictly precedes other in the total order.
func (id ID) Less(other ID) bool {
	if id.Round != other.Round {
		return id.Round < other.Round
	}
	return id.NodeUID < other.NodeUID
}

// GreaterOrEqual reports whether id is >= other.
func (id ID) GreaterOrEqual(other ID) bool {
	return !id.Less(other)
}

// Equal reports whether id and other identify the same proposal.
func (id ID) Equal(other ID) bool {
	return id.Round == other.Round && id.NodeUID == other.NodeUID
}

func (id ID) String() string {
	if id.IsNone() {
		return "ID(none)"
	}
	return fmt.Sprintf("ID(%d,%s)", id.Round, id.NodeUID)
}

// MarshalJSON encodes id as the two-element [round, node_uid] tuple
// the wire protocol uses, matching a Python Paxos ID's tuple form.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{id.Round, id.NodeUID})
}

// UnmarshalJSON decodes id from a [round, node_uid] tuple. MarshalJSON
// writes None as [0, ""], which decodes back to a Round-0 (None) ID; an
// empty array is also accepted and decodes to None.
func (id *ID) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) == 0 {
		*id = None
		return nil
	}
	if len(tuple) != 2 {
		return fmt.Errorf("paxos: ID must encode as a 2-element tuple, got %d elements", len(tuple))
	}
	var round uint64
	var nodeUID string
	if err := json.Unmarshal(tuple[0], &round); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[1], &nodeUID); err != nil {
		return err
	}
	id.Round = round
	id.NodeUID = nodeUID
	return nil
}

// Max returns the greater of id and other.
func Max(id, other ID) ID {
	if id.Less(other) {
		return other
	}
	return id
}
