// Package mempool holds the transactions waiting to be included in a block.
// Commit transactions expire every epoch; the pending index tracks recently
// admitted transactions so that gossip duplicates are dropped cheaply.
package mempool

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/oraculum-network/oraculum/types"
)

// ErrTransactionAlreadyKnown is returned when a transaction is re-admitted
// while still pending.
var ErrTransactionAlreadyKnown = errors.New("transaction is already in the mempool")

// ErrUnsupportedTransaction is returned for transaction kinds that are never
// admitted through gossip (mint and tally only exist inside blocks).
var ErrUnsupportedTransaction = errors.New("transaction kind cannot enter the mempool")

// Pool is the transactions pool of the chain manager. It is owned by the
// chain manager run loop and therefore needs no locking.
type Pool struct {
	vtPool     map[types.Hash]*types.VTTransaction
	drPool     map[types.Hash]*types.DRTransaction
	commitPool map[types.Hash]*types.CommitTransaction
	revealPool map[types.Hash]*types.RevealTransaction
	pendingIdx *gocache.Cache
}

// New returns an empty pool. Pending entries auto-expire after the given
// timeout even if no epoch tick clears them first.
func New(pendingTimeout time.Duration) *Pool {
	return &Pool{
		vtPool:     make(map[types.Hash]*types.VTTransaction),
		drPool:     make(map[types.Hash]*types.DRTransaction),
		commitPool: make(map[types.Hash]*types.CommitTransaction),
		revealPool: make(map[types.Hash]*types.RevealTransaction),
		pendingIdx: gocache.New(pendingTimeout, 2*pendingTimeout),
	}
}

// Insert admits a transaction into its pool.
func (p *Pool) Insert(tx types.Transaction) error {
	hash := tx.Hash()
	if _, pending := p.pendingIdx.Get(hash.String()); pending {
		return ErrTransactionAlreadyKnown
	}
	switch t := tx.(type) {
	case *types.VTTransaction:
		p.vtPool[hash] = t
	case *types.DRTransaction:
		p.drPool[hash] = t
	case *types.CommitTransaction:
		p.commitPool[hash] = t
	case *types.RevealTransaction:
		p.revealPool[hash] = t
	default:
		return ErrUnsupportedTransaction
	}
	p.pendingIdx.SetDefault(hash.String(), tx)
	return nil
}

// Get looks a transaction up across all pools.
func (p *Pool) Get(hash types.Hash) (types.Transaction, bool) {
	if tx, ok := p.vtPool[hash]; ok {
		return tx, true
	}
	if tx, ok := p.drPool[hash]; ok {
		return tx, true
	}
	if tx, ok := p.commitPool[hash]; ok {
		return tx, true
	}
	if tx, ok := p.revealPool[hash]; ok {
		return tx, true
	}
	return nil, false
}

// Remove drops the transactions included in a consolidated block.
func (p *Pool) Remove(block *types.Block) {
	for _, tx := range block.Txns.ValueTransferTxns {
		delete(p.vtPool, tx.Hash())
	}
	for _, tx := range block.Txns.DataRequestTxns {
		delete(p.drPool, tx.Hash())
	}
	for _, tx := range block.Txns.CommitTxns {
		delete(p.commitPool, tx.Hash())
	}
	for _, tx := range block.Txns.RevealTxns {
		delete(p.revealPool, tx.Hash())
	}
}

// VTLen returns the number of queued value transfer transactions.
func (p *Pool) VTLen() int { return len(p.vtPool) }

// DRLen returns the number of queued data request transactions.
func (p *Pool) DRLen() int { return len(p.drPool) }

// VTHashes lists the queued value transfer transaction hashes.
func (p *Pool) VTHashes() []types.Hash {
	out := make([]types.Hash, 0, len(p.vtPool))
	for h := range p.vtPool {
		out = append(out, h)
	}
	return out
}

// DRHashes lists the queued data request transaction hashes.
func (p *Pool) DRHashes() []types.Hash {
	out := make([]types.Hash, 0, len(p.drPool))
	for h := range p.drPool {
		out = append(out, h)
	}
	return out
}

// DataRequests returns the queued data request transactions.
func (p *Pool) DataRequests() []*types.DRTransaction {
	out := make([]*types.DRTransaction, 0, len(p.drPool))
	for _, tx := range p.drPool {
		out = append(out, tx)
	}
	return out
}

// ClearCommits drops all commit transactions. Commits expire every epoch.
func (p *Pool) ClearCommits() {
	p.commitPool = make(map[types.Hash]*types.CommitTransaction)
}

// ClearPendingTransactions resets the pending index at the epoch boundary.
func (p *Pool) ClearPendingTransactions() {
	p.pendingIdx.Flush()
}
