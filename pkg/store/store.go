/*
Package store persists resolved Paxos values to an external key/value
table. A node's Store is advisory to its own Acceptor/Learner state: it
remembers the last-committed proposal number per key so that a restarted
node can start at a sequence number above the instances it already
committed, and so a write from a stale proposal never clobbers a newer
one.
*/
package store

import "context"

// Store is the durable key/value surface a resolved Paxos value is
// written through. Implementations must make Commit a no-op when
// proposalNumber does not exceed the row's current proposal, so that
// replayed or out-of-order commits never regress a key.
type Store interface {
	// Commit writes value under key if proposalNumber is strictly
	// greater than the proposal number already stored for key (or the
	// key does not exist yet).
	Commit(ctx context.Context, key string, value string, proposalNumber uint64) error

	// Get returns the value currently stored for key and whether it
	// exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// HighestProposalNumber returns the greatest proposal number
	// committed across every key, or zero if the store is empty. A
	// Node commits each resolved instance with its instance number as
	// the proposal number, and cmd/zpaxnode uses this on startup to
	// start the node's sequence number past the highest one committed.
	HighestProposalNumber(ctx context.Context) (uint64, error)

	Close() error
}
