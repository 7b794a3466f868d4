package paxos

// Learner counts accepted-notifications per ProposalID for a single
// instance and detects resolution: the first ID to gather quorum-many
// distinct node UIDs fixes the instance's value forever.
type Learner struct {
	quorumSize int
	acceptedBy map[ID]map[string]struct{}

	resolved bool
	finalID  ID
	finalVal any
}

// NewLearner returns a Learner that resolves once quorumSize distinct
// node UIDs have reported acceptance at the same ID.
func NewLearner(quorumSize int) *Learner {
	return &Learner{
		quorumSize: quorumSize,
		acceptedBy: make(map[ID]map[string]struct{}),
	}
}

// Resolved reports whether this instance has reached quorum.
func (l *Learner) Resolved() bool { return l.resolved }

// FinalValue returns the resolved value and the ID it resolved at.
// Only meaningful once Resolved returns true.
func (l *Learner) FinalValue() (ID, any) { return l.finalID, l.finalVal }

// ReceiveAccepted records that fromNodeUID has accepted value at id.
// Duplicate reports from the same node at the same id are idempotent.
// Once resolved, further input is ignored, matching Paxos' tolerance
// for duplicate/late delivery.
func (l *Learner) ReceiveAccepted(fromNodeUID string, id ID, value any) {
	if l.resolved {
		return
	}

	voters, ok := l.acceptedBy[id]
	if !ok {
		voters = make(map[string]struct{})
		l.acceptedBy[id] = voters
	}
	voters[fromNodeUID] = struct{}{}

	if len(voters) >= l.quorumSize {
		l.resolved = true
		l.finalID = id
		l.finalVal = value
	}
}
