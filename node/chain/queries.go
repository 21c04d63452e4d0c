package chain

import (
	"context"

	"github.com/oraculum-network/oraculum/node/txfactory"
	"github.com/oraculum-network/oraculum/types"
)

// Snapshot is the read-only projection of the chain state handed to the RPC
// surface. It is a value copy: readers never alias the live state.
type Snapshot struct {
	State                       StateMachine           `json:"state"`
	CurrentEpoch                *types.Epoch           `json:"currentEpoch"`
	Environment                 string                 `json:"environment"`
	HighestBlockCheckpoint      types.CheckpointBeacon `json:"highestBlockCheckpoint"`
	HighestSuperblockCheckpoint types.CheckpointBeacon `json:"highestSuperblockCheckpoint"`
	BlockCount                  int                    `json:"blockCount"`
	UnspentOutputs              int                    `json:"unspentOutputs"`
	PendingDataRequests         int                    `json:"pendingDataRequests"`
}

// GetSnapshot returns the read-only chain projection.
func (s *Service) GetSnapshot() Snapshot {
	var out Snapshot
	s.call(func() {
		out = Snapshot{
			State:                       s.smState,
			CurrentEpoch:                s.currentEpoch,
			Environment:                 s.chainState.ChainInfo.Environment,
			HighestBlockCheckpoint:      s.getChainBeacon(),
			HighestSuperblockCheckpoint: s.getSuperblockBeacon(),
			BlockCount:                  s.chainState.BlockChain.Len(),
			UnspentOutputs:              s.chainState.UnspentOutputsPool.Len(),
			PendingDataRequests:         len(s.chainState.DataRequestPool.DataRequests),
		}
	})
	return out
}

// GetHighestBlockCheckpoint returns the beacon of our chain tip.
func (s *Service) GetHighestBlockCheckpoint() (types.CheckpointBeacon, error) {
	var beacon types.CheckpointBeacon
	var err error
	s.call(func() {
		if s.chainState.ChainInfo == nil {
			log.Error("No chain info loaded in the chain manager")
			err = ErrChainInfoNotFound
			return
		}
		beacon = s.getChainBeacon()
	})
	return beacon, err
}

// GetSuperBlockVotes returns the outstanding votes for the current
// superblock.
func (s *Service) GetSuperBlockVotes() []*types.SuperBlockVote {
	var votes []*types.SuperBlockVote
	s.call(func() { votes = s.chainState.SuperblockState.GetCurrentSuperblockVotes() })
	return votes
}

// GetNodeStats returns the node's production counters.
func (s *Service) GetNodeStats() types.NodeStats {
	var stats types.NodeStats
	s.call(func() { stats = s.chainState.NodeStats })
	return stats
}

// GetBlocksEpochRange returns the (epoch, hash) index entries within the
// given epoch range. A non-zero limit caps the result, taken from the front
// or from the end.
func (s *Service) GetBlocksEpochRange(start, end types.Epoch, limit int, limitFromEnd bool) []types.BlockChainEntry {
	var entries []types.BlockChainEntry
	s.call(func() {
		entries = s.chainState.BlockChain.Range(start, end)
	})
	if limit == 0 || len(entries) <= limit {
		return entries
	}
	if limitFromEnd {
		return entries[len(entries)-limit:]
	}
	return entries[:limit]
}

// GetMempoolResult lists the transaction hashes waiting in the mempool.
type GetMempoolResult struct {
	ValueTransfer []types.Hash `json:"valueTransfer"`
	DataRequest   []types.Hash `json:"dataRequest"`
}

// GetMempool lists the queued transactions.
func (s *Service) GetMempool() GetMempoolResult {
	var out GetMempoolResult
	s.call(func() {
		out = GetMempoolResult{
			ValueTransfer: s.mempool.VTHashes(),
			DataRequest:   s.mempool.DRHashes(),
		}
	})
	return out
}

// GetMemoryTransaction looks a transaction up in the mempool.
func (s *Service) GetMemoryTransaction(hash types.Hash) (types.Transaction, error) {
	var tx types.Transaction
	var ok bool
	s.call(func() { tx, ok = s.mempool.Get(hash) })
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}

// GetBalance sums the unspent outputs of an identity. Requires Synced.
func (s *Service) GetBalance(pkh types.PublicKeyHash) (uint64, error) {
	var balance uint64
	var err error
	s.call(func() {
		if s.smState != Synced {
			err = NotSyncedError{CurrentState: s.smState}
			return
		}
		for _, entry := range s.chainState.UnspentOutputsPool.Map {
			if entry.Output.PKH == pkh {
				balance += entry.Output.Value
			}
		}
	})
	return balance, err
}

// GetUtxoInfo lists the unspent outputs of an identity, with collateral
// readiness. Requires Synced.
func (s *Service) GetUtxoInfo(pkh types.PublicKeyHash) (types.UtxoInfo, error) {
	var info types.UtxoInfo
	var err error
	s.call(func() {
		if s.smState != Synced {
			err = NotSyncedError{CurrentState: s.smState}
			return
		}
		constants := s.consensusConstants()
		blockNumberLimit := s.chainState.BlockNumber()
		if blockNumberLimit > constants.CollateralAge {
			blockNumberLimit -= constants.CollateralAge
		} else {
			blockNumberLimit = 0
		}
		var queryPKH *types.PublicKeyHash
		if s.signer == nil || s.signer.PublicKeyHash() != pkh {
			queryPKH = &pkh
		}
		info = txfactory.GetUtxoInfo(queryPKH, &s.chainState.OwnUtxos, &s.chainState.UnspentOutputsPool,
			constants.CollateralMinimum, blockNumberLimit)
	})
	return info, err
}

// GetReputation returns the reputation score of an identity and whether it
// is active. Requires Synced.
func (s *Service) GetReputation(pkh types.PublicKeyHash) (types.Reputation, bool, error) {
	var rep types.Reputation
	var active bool
	var err error
	s.call(func() {
		if s.smState != Synced {
			err = NotSyncedError{CurrentState: s.smState}
			return
		}
		engine := s.chainState.ReputationEngine
		if engine == nil {
			err = ErrChainNotReady
			return
		}
		rep = engine.TRS.Get(pkh)
		active = engine.ARS.Contains(pkh)
	})
	return rep, active, err
}

// ReputationEntry pairs a score with activity for the all-identities query.
type ReputationEntry struct {
	Reputation types.Reputation `json:"reputation"`
	Active     bool             `json:"active"`
}

// GetReputationAll returns the whole score table. Requires Synced.
func (s *Service) GetReputationAll() (map[types.PublicKeyHash]ReputationEntry, error) {
	var out map[types.PublicKeyHash]ReputationEntry
	var err error
	s.call(func() {
		if s.smState != Synced {
			err = NotSyncedError{CurrentState: s.smState}
			return
		}
		engine := s.chainState.ReputationEngine
		if engine == nil {
			err = ErrChainNotReady
			return
		}
		out = make(map[types.PublicKeyHash]ReputationEntry)
		for pkh, rep := range engine.TRS.Identities() {
			out[pkh] = ReputationEntry{Reputation: rep, Active: engine.ARS.Contains(pkh)}
		}
	})
	return out, err
}

// ReputationStatus summarizes the reputation engine.
type ReputationStatus struct {
	NumActiveIdentities   uint32 `json:"numActiveIdentities"`
	TotalActiveReputation uint64 `json:"totalActiveReputation"`
}

// GetReputationStatus returns the reputation engine summary. Requires
// Synced.
func (s *Service) GetReputationStatus() (ReputationStatus, error) {
	var out ReputationStatus
	var err error
	s.call(func() {
		if s.smState != Synced {
			err = NotSyncedError{CurrentState: s.smState}
			return
		}
		engine := s.chainState.ReputationEngine
		if engine == nil {
			err = ErrChainNotReady
			return
		}
		out = ReputationStatus{
			NumActiveIdentities:   uint32(engine.ARS.ActiveIdentitiesNumber()),
			TotalActiveReputation: engine.TotalActiveReputation(),
		}
	})
	return out, err
}

// GetDataRequestReport returns everything known about a data request: from
// memory while it resolves, from storage once finalized.
func (s *Service) GetDataRequestReport(ctx context.Context, drPointer types.Hash) (*types.DataRequestReport, error) {
	var inMemory *types.DataRequestReport
	s.call(func() {
		if state, ok := s.chainState.DataRequestPool.Get(drPointer); ok {
			inMemory = &types.DataRequestReport{
				DRPointer:         drPointer,
				DataRequestOutput: state.DataRequestOutput,
				Info:              state.Info,
			}
		}
	})
	if inMemory != nil {
		return inMemory, nil
	}
	report, err := s.cfg.DB.DataRequestReport(ctx, drPointer)
	if err != nil {
		return nil, ErrDataRequestNotFound
	}
	return report, nil
}
