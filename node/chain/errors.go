package chain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrChainNotReady is returned when a handler needs the reputation
	// engine, the epoch constants or the crypto contexts and at least one of
	// them has not been initialized yet.
	ErrChainNotReady = errors.New("chain is not ready yet")

	// ErrChainInfoNotFound is returned when no chain info has been loaded.
	ErrChainInfoNotFound = errors.New("chain info not found")

	// ErrInvalidBatch flags a structural or validation failure inside a
	// received block batch.
	ErrInvalidBatch = errors.New("received invalid blocks batch")

	// ErrSuperblockMismatch flags a constructed superblock whose hash
	// disagrees with the sync target.
	ErrSuperblockMismatch = errors.New("constructed superblock does not match the sync target")

	// ErrForkDetected flags a consensus beacon sharing our epoch but not our
	// block hash.
	ErrForkDetected = errors.New("our chain has forked away from the network consensus")

	// ErrDataRequestNotFound is returned when a data request report is
	// neither in memory nor in storage.
	ErrDataRequestNotFound = errors.New("data request not found")

	// ErrTransactionNotFound is returned when a mempool lookup misses.
	ErrTransactionNotFound = errors.New("transaction not found in the mempool")
)

// NotSyncedError is returned by operations that require the Synced state.
type NotSyncedError struct {
	CurrentState StateMachine
}

// Error implements error.
func (e NotSyncedError) Error() string {
	return fmt.Sprintf("node is not synced yet (current state: %s)", e.CurrentState)
}
