/*
Package paxos implements the single-instance and multi-instance Paxos
state machines: ProposalID ordering, Acceptor promise/accept rules,
Learner quorum accounting, and the Proposer (with a heartbeat-driven
leader election layer on top).

These types are pure state machines. They never touch a network or a
clock directly; callers (pkg/node) inject outbound-message delivery as
a small capability and drive time with explicit calls, so the whole
package is deterministic and unit-testable without fakes.
*/
package paxos
