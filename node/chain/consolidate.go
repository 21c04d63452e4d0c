package chain

import (
	"context"
	"time"

	"github.com/paulbellamy/ratecounter"
	"github.com/pkg/errors"

	"github.com/oraculum-network/oraculum/node/sessions"
	"github.com/oraculum-network/oraculum/types"
)

// validateBlockAgainstTip checks that the block extends our chain tip.
func (s *Service) validateBlockAgainstTip(block *types.Block) error {
	tip := s.getChainBeacon()
	if block.BlockHeader.Beacon.HashPrevBlock != tip.HashPrevBlock {
		return errors.Errorf("block %s does not extend our tip %s", block.Hash(), tip)
	}
	if s.chainState.BlockChain.Len() > 0 && block.Epoch() <= tip.Checkpoint {
		return errors.Errorf("block epoch %d is not above our tip epoch %d", block.Epoch(), tip.Checkpoint)
	}
	return nil
}

// computeUtxoDiff validates the value flow of a block against the current
// UTXO pool and returns the pool mutations it implies. Full transaction
// validation (scripts, signatures, eligibility) belongs to the validation
// collaborator; the chain manager enforces spendability only.
func (s *Service) computeUtxoDiff(block *types.Block) (*types.UtxoDiff, error) {
	diff := types.NewUtxoDiff()
	spent := make(map[string]bool)
	blockNumber := s.chainState.BlockNumber() + 1

	spend := func(input types.Input) error {
		key := input.OutputPointer.String()
		if spent[key] {
			return errors.Errorf("output %s is spent twice within the block", key)
		}
		if !s.chainState.UnspentOutputsPool.Contains(input.OutputPointer) {
			return errors.Errorf("output %s is not in the UTXO pool", key)
		}
		spent[key] = true
		diff.Remove(input.OutputPointer)
		return nil
	}

	mint := &block.Txns.Mint
	diff.Insert(types.OutputPointer{TransactionID: mint.Hash()}, mint.Output, blockNumber)

	for _, tx := range block.Txns.ValueTransferTxns {
		for _, input := range tx.Body.Inputs {
			if err := spend(input); err != nil {
				return nil, err
			}
		}
		txHash := tx.Hash()
		for i, vto := range tx.Body.Outputs {
			diff.Insert(types.OutputPointer{TransactionID: txHash, OutputIndex: uint32(i)}, vto, blockNumber)
		}
	}
	for _, tx := range block.Txns.DataRequestTxns {
		for _, input := range tx.Body.Inputs {
			if err := spend(input); err != nil {
				return nil, err
			}
		}
		txHash := tx.Hash()
		for i, vto := range tx.Body.Outputs {
			diff.Insert(types.OutputPointer{TransactionID: txHash, OutputIndex: uint32(i)}, vto, blockNumber)
		}
	}
	for _, tx := range block.Txns.TallyTxns {
		txHash := tx.Hash()
		for i, vto := range tx.Outputs {
			diff.Insert(types.OutputPointer{TransactionID: txHash, OutputIndex: uint32(i)}, vto, blockNumber)
		}
	}
	return diff, nil
}

// applyBlockToState performs the in-memory consolidation: UTXO pool, own
// UTXO index, block index, chain tip, data request lifecycle, reputation and
// mempool. Never suspends mid-sequence.
func (s *Service) applyBlockToState(block *types.Block, diff *types.UtxoDiff) {
	blockHash := block.Hash()
	epoch := block.Epoch()

	diff.ApplyTo(&s.chainState.UnspentOutputsPool)
	s.indexOwnOutputs(diff)

	s.chainState.BlockChain.Insert(epoch, blockHash)
	s.chainState.ChainInfo.HighestBlockCheckpoint = types.CheckpointBeacon{
		Checkpoint:    epoch,
		HashPrevBlock: blockHash,
	}

	drPool := s.chainState.DataRequestPool
	for _, tx := range block.Txns.DataRequestTxns {
		drPool.AddDataRequest(epoch, tx, blockHash)
	}
	for _, tx := range block.Txns.CommitTxns {
		drPool.AddCommit(tx)
	}
	for _, tx := range block.Txns.RevealTxns {
		drPool.AddReveal(tx)
	}
	for _, tx := range block.Txns.TallyTxns {
		drPool.AddTally(tx, blockHash)
	}
	for _, reveal := range drPool.UpdateStages() {
		if s.smState == Synced {
			s.cfg.Gateway.Broadcast(sessions.SendTransaction{Transaction: reveal}, false)
		}
	}

	// The proposer and the committing witnesses showed activity this epoch.
	identities := []types.PublicKeyHash{block.BlockSig.PublicKeyHash()}
	for _, tx := range block.Txns.CommitTxns {
		identities = append(identities, tx.PKH())
	}
	if err := s.chainState.ReputationEngine.ARS.Update(identities, epoch); err != nil {
		log.WithError(err).Error("Error updating active reputation set")
	}

	s.mempool.Remove(block)

	if s.signer != nil {
		ownPKH := s.signer.PublicKeyHash()
		if block.BlockSig.PublicKeyHash() == ownPKH {
			s.chainState.NodeStats.BlockMinedCount++
			s.chainState.NodeStats.LastBlockMined = epoch
		}
		for _, tx := range block.Txns.CommitTxns {
			if tx.PKH() == ownPKH {
				s.chainState.NodeStats.CommitsCount++
			}
		}
	}

	consolidatedBlocksCount.Inc()
	highestBlockEpochGauge.Set(float64(epoch))
	s.stateFeed.Send(BlockProcessedEvent{BlockHash: blockHash, Epoch: epoch})
	logConsolidatedBlock(block, blockHash)
}

// indexOwnOutputs keeps the own-UTXO index aligned with a freshly applied
// diff.
func (s *Service) indexOwnOutputs(diff *types.UtxoDiff) {
	if s.signer == nil {
		return
	}
	ownPKH := s.signer.PublicKeyHash()
	for key, entry := range diff.InsertedUtxos {
		if entry.Output.PKH != ownPKH {
			continue
		}
		pointer, err := types.OutputPointerFromString(key)
		if err != nil {
			continue
		}
		s.chainState.OwnUtxos.Insert(pointer)
	}
	for _, key := range diff.RemovedUtxos {
		pointer, err := types.OutputPointerFromString(key)
		if err != nil {
			continue
		}
		s.chainState.OwnUtxos.Remove(pointer)
	}
}

// processRequestedBlock validates and consolidates one block received from a
// peer (a sync batch element, the genesis block or a consensus candidate).
func (s *Service) processRequestedBlock(ctx context.Context, block *types.Block) error {
	if err := s.validateBlockAgainstTip(block); err != nil {
		return err
	}
	diff, err := s.computeUtxoDiff(block)
	if err != nil {
		return err
	}
	s.applyBlockToState(block, diff)
	if err := s.cfg.DB.SaveBlock(ctx, block); err != nil {
		return errors.Wrap(err, "could not persist block")
	}
	return nil
}

// processBlocksBatch applies a part of a sync batch in order, returning how
// many blocks were consolidated before the first failure.
func (s *Service) processBlocksBatch(ctx context.Context, syncTarget *types.SyncTarget, blocks []*types.Block) (int, error) {
	counter := ratecounter.NewRateCounter(syncRateSeconds * time.Second)
	for i, block := range blocks {
		if err := s.processRequestedBlock(ctx, block); err != nil {
			return i, err
		}
		logSyncProgress(counter, block, syncTarget.Block.Checkpoint)
	}
	return len(blocks), nil
}

// consolidateBlock is the synced-path consolidation: the candidate was
// already validated, so its diff is applied and the block and the snapshot
// are persisted right away.
func (s *Service) consolidateBlock(ctx context.Context, block *types.Block, diff *types.UtxoDiff) error {
	s.applyBlockToState(block, diff)
	if err := s.cfg.DB.SaveBlock(ctx, block); err != nil {
		return errors.Wrap(err, "could not persist block")
	}
	s.persistFinishedDataRequests(ctx)
	s.lastChainState = s.chainState.Clone()
	s.persistChainState(ctx)
	return nil
}

// persistBlocksBatch writes a batch of consolidated blocks.
func (s *Service) persistBlocksBatch(ctx context.Context, blocks []*types.Block) {
	if len(blocks) == 0 {
		return
	}
	if err := s.cfg.DB.SaveBlocksBatch(ctx, blocks); err != nil {
		log.WithError(err).Error("Could not persist blocks batch")
	}
}

// persistFinishedDataRequests writes the reports of the requests finalized
// since the last drain.
func (s *Service) persistFinishedDataRequests(ctx context.Context) {
	for _, report := range s.chainState.DataRequestPool.FinishedDataRequests() {
		reportCopy := report
		if err := s.cfg.DB.SaveDataRequestReport(ctx, &reportCopy); err != nil {
			log.WithError(err).WithField("drPointer", report.DRPointer).
				Error("Could not persist data request report")
		}
	}
}

// persistChainState overwrites the snapshot that fork recovery restores.
func (s *Service) persistChainState(ctx context.Context) {
	if err := s.cfg.DB.SaveChainState(ctx, s.chainState); err != nil {
		log.WithError(err).Error("Could not persist chain state")
	}
}

// constructSuperblock builds the superblock whose construction epoch is the
// given boundary: index epoch/p over the blocks of the preceding window.
func (s *Service) constructSuperblock(epoch types.Epoch) *types.SuperBlock {
	period := uint32(s.consensusConstants().SuperblockPeriod)
	index := epoch / period
	var windowStart types.Epoch
	if index > 0 {
		windowStart = (index - 1) * period
	}
	var hashes []types.Hash
	lastBlock := s.getChainBeacon().HashPrevBlock
	if epoch > 0 {
		entries := s.chainState.BlockChain.Range(windowStart, epoch-1)
		for _, entry := range entries {
			hashes = append(hashes, entry.Hash)
		}
		if len(entries) > 0 {
			lastBlock = entries[len(entries)-1].Hash
		}
	}
	ars := s.chainState.ReputationEngine.ARS.Identities()
	return s.chainState.SuperblockState.BuildSuperblock(hashes, ars, index, lastBlock)
}

// constructAndVoteSuperblock closes a superblock window while synced,
// promotes the new superblock beacon, persists the snapshot and broadcasts
// our vote when mining is enabled.
func (s *Service) constructAndVoteSuperblock(epoch types.Epoch) {
	superblock := s.constructSuperblock(epoch)
	s.chainState.ChainInfo.HighestSuperblockCheckpoint = s.chainState.SuperblockState.GetBeacon()
	log.WithField("superblock", s.getSuperblockBeacon()).Info("Constructed superblock")
	s.lastChainState = s.chainState.Clone()
	s.persistChainState(s.ctx)

	// Votes only leave a node that is fully in consensus with the network.
	if s.smState == Synced && s.cfg.MiningEnabled && s.signer != nil {
		s.voteForSuperblock(superblock)
	}
}
