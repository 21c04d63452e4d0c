package chain

import (
	"context"

	"github.com/paulbellamy/ratecounter"
	"go.opencensus.io/trace"

	"github.com/oraculum-network/oraculum/node/sessions"
	"github.com/oraculum-network/oraculum/types"
)

// AddBlocks delivers a received block batch to the chain manager.
func (s *Service) AddBlocks(blocks []*types.Block) {
	s.do(func() { s.handleAddBlocks(blocks) })
}

// handleAddBlocks ingests a block batch according to the current state.
// Runs on the run loop.
func (s *Service) handleAddBlocks(blocks []*types.Block) {
	ctx, span := trace.StartSpan(s.ctx, "chain.handleAddBlocks")
	defer span.End()

	log.WithField("state", s.smState).WithField("blocks", len(blocks)).
		Debug("AddBlocks received")

	constants := s.consensusConstants()

	switch s.smState {
	case WaitingConsensus:
		// In WaitingConsensus state, only the genesis block is accepted.
		if len(blocks) == 1 && blocks[0].Hash() == constants.GenesisHash {
			if err := s.processRequestedBlock(ctx, blocks[0]); err != nil {
				log.WithError(err).Error("Failed to consolidate genesis block")
				return
			}
			log.Debug("Successfully consolidated genesis block")
			// Set the last beacon because otherwise the network cannot
			// bootstrap.
			s.cfg.Gateway.SetLastBeacon(s.lastBeacon())
		}
	case Synchronizing:
		s.processSyncBatch(ctx, blocks)
	case AlmostSynced, Synced:
	}

	if s.smState != Synchronizing {
		s.syncWaitingForAddBlocksSince = nil
	}
}

// processSyncBatch drives one round of catch-up: split the batch at the
// superblock boundaries, apply each part, construct the intermediate
// superblocks and decide whether another batch is needed.
func (s *Service) processSyncBatch(ctx context.Context, blocks []*types.Block) {
	if s.syncTarget == nil || s.currentEpoch == nil {
		log.Warn("Target beacon is None")
		s.syncWaitingForAddBlocksSince = nil
		return
	}

	if len(blocks) == 0 {
		log.Debug("Received an empty AddBlocks message")
		s.setState(WaitingConsensus)
		s.initializeFromStorage(ctx)
		log.Info("Restored chain state from storage")
		return
	}

	syncTarget := *s.syncTarget
	superblockPeriod := uint32(s.consensusConstants().SuperblockPeriod)

	// The serving peer answers the range inclusive of our tip, so the first
	// block of every batch is the one we already consolidated.
	blocks = blocks[1:]

	blocks1, blocks2, blocks3, blocks4, ok2, _, ok4, nextIndex := splitBlocksBatchAtTarget(
		blocks,
		*s.currentEpoch,
		&syncTarget,
		superblockPeriod,
	)

	// The drive:
	//  * process part 1
	//  * if the target is not reached, request the next batch and stop
	//  * construct the target superblock and persist part 1
	//  * process part 2, persist it and construct superblock target+1
	//  * process part 3
	//  * a non-empty part 4 means the node is still one superblock behind

	numProcessed, err := s.processBlocksBatch(ctx, &syncTarget, blocks1)
	if err != nil {
		// This branch happens when this node has forked but the network has
		// a valid consensus, and also when a peer sends an invalid batch.
		// Either way: back to WaitingConsensus and restart the
		// synchronization on the next PeersBeacons message.
		log.WithError(err).Errorf("%v", ErrInvalidBatch)
		invalidBatchesCount.Inc()
		s.setState(WaitingConsensus)
		s.initializeFromStorage(ctx)
		log.Info("Restored chain state from storage")
		return
	}

	var epochOfTheLastBlock *types.Epoch
	if !ok2 {
		// Target not reached yet, request the next batch.
		log.Debug("1 Target not reached, request blocks batch")
		s.requestBlocksBatch()
		return
	}
	if numProcessed == 0 {
		log.Debug("1 Sync done, 0 blocks processed")
	} else {
		epoch := blocks1[numProcessed-1].Epoch()
		epochOfTheLastBlock = &epoch
		log.WithField("epoch", epoch).WithField("superblock", syncTarget.Superblock.Checkpoint).
			Debug("1 Sync done up to the last checkpoint covered by the target superblock")
	}

	// The target superblock must be constructed to be able to validate the
	// superblocks that follow it.
	currentSuperblockCheckpoint := s.chainState.SuperblockState.GetBeacon().Checkpoint
	targetSuperblockEpoch := syncTarget.Superblock.Checkpoint * superblockPeriod
	if syncTarget.Superblock.Checkpoint != currentSuperblockCheckpoint {
		s.advanceReputationForEmptyEpochs(epochOfTheLastBlock, targetSuperblockEpoch)

		// Blocks must be persisted before the superblock that covers them.
		s.persistBlocksBatch(ctx, blocks1)
		s.persistFinishedDataRequests(ctx)

		log.WithField("index", syncTarget.Superblock.Checkpoint).
			WithField("epoch", targetSuperblockEpoch).
			Debug("Will construct superblock during synchronization")
		superblock := s.constructSuperblock(targetSuperblockEpoch)
		if superblock.Hash() != syncTarget.Superblock.HashPrevBlock {
			log.WithField("target", syncTarget.Superblock).
				WithField("constructed", superblock.Hash()).
				Errorf("%v", ErrSuperblockMismatch)
			s.setState(WaitingConsensus)
			s.initializeFromStorage(ctx)
			log.Info("Restored chain state from storage")
			return
		}

		// While synchronizing, the consensus beacon is the one just created.
		s.chainState.ChainInfo.HighestSuperblockCheckpoint = s.chainState.SuperblockState.GetBeacon()
		log.WithField("superblock", s.getSuperblockBeacon()).Info("Consensus while sync!")
		// Persist the chain state with the new superblock beacon: this is
		// the rollback point of the next batch.
		s.lastChainState = s.chainState.Clone()
		s.persistChainState(ctx)
	}

	numProcessed, err = s.processBlocksBatch(ctx, &syncTarget, blocks2)
	if err != nil {
		log.WithError(err).Errorf("2 %v", ErrInvalidBatch)
		invalidBatchesCount.Inc()
		s.setState(WaitingConsensus)
		return
	}
	if numProcessed == 0 {
		log.Debug("2 Sync done, 0 blocks processed")
	} else {
		epoch := blocks2[numProcessed-1].Epoch()
		epochOfTheLastBlock = &epoch
		log.WithField("epoch", epoch).Debug("2 Sync done")
	}

	if nextIndex != nil {
		secondSuperblockEpoch := *nextIndex * superblockPeriod
		s.advanceReputationForEmptyEpochs(epochOfTheLastBlock, secondSuperblockEpoch)

		s.persistBlocksBatch(ctx, blocks2)
		s.persistFinishedDataRequests(ctx)

		log.Info("Block sync target achieved, go to WaitingConsensus state")
		s.setState(WaitingConsensus)

		// The second superblock must exist to validate the votes that will
		// arrive for it. It is constructed but never broadcast.
		log.WithField("index", syncTarget.Superblock.Checkpoint+1).
			WithField("epoch", secondSuperblockEpoch).
			Debug("Will construct the second superblock during synchronization")
		s.constructSuperblock(secondSuperblockEpoch)
	}

	numProcessed, err = s.processBlocksBatch(ctx, &syncTarget, blocks3)
	if err != nil {
		log.WithError(err).Errorf("3 %v", ErrInvalidBatch)
		invalidBatchesCount.Inc()
		s.setState(WaitingConsensus)
		return
	}
	if numProcessed == 0 {
		log.Debug("3 Sync done, 0 blocks processed")
	} else {
		log.WithField("epoch", blocks3[numProcessed-1].Epoch()).Debug("3 Sync done")
	}

	// The network may have advanced while this batch was processed: let the
	// next PeersBeacons message decide where we stand.
	log.Info("Block sync target achieved, go to WaitingConsensus state")
	s.setState(WaitingConsensus)

	if ok4 && len(blocks4) > 0 {
		log.Error("This sync batch will not work because this node is one superblock behind, retry")
	}
}

// advanceReputationForEmptyEpochs applies empty active-set updates for the
// epochs without blocks right before a superblock boundary.
func (s *Service) advanceReputationForEmptyEpochs(epochOfTheLastBlock *types.Epoch, boundaryEpoch types.Epoch) {
	if epochOfTheLastBlock != nil && boundaryEpoch == *epochOfTheLastBlock+1 {
		return
	}
	if epochOfTheLastBlock != nil {
		log.WithField("from", *epochOfTheLastBlock).WithField("to", boundaryEpoch).
			Debug("Updating reputation for empty epochs")
	} else {
		log.WithField("to", boundaryEpoch).Debug("Updating reputation for empty epochs")
	}
	if err := s.chainState.ReputationEngine.ARS.UpdateEmpty(boundaryEpoch); err != nil {
		log.WithError(err).Error("Error updating reputation before processing block")
	}
}

// requestBlocksBatch asks one consolidated outbound peer for the blocks that
// follow our tip, and records when we started waiting.
func (s *Service) requestBlocksBatch() {
	if s.batchRequestLimiter.Add("batch", 1) == 0 {
		log.Debug("Batch request rate limited")
		return
	}
	s.cfg.Gateway.Anycast(sessions.GetBlocks{Beacon: s.getChainBeacon()})
	s.syncWaitingForAddBlocksSince = s.currentEpoch
}

// logSyncProgress logs block application progress with a rolling rate.
func logSyncProgress(counter *ratecounter.RateCounter, block *types.Block, target types.Epoch) {
	counter.Incr(1)
	rate := float64(counter.Rate()) / syncRateSeconds
	if rate == 0 {
		rate = 1
	}
	log.WithField("blocksPerSecond", rate).
		Infof("Processing block %d/%d", block.Epoch(), target)
}

const syncRateSeconds = 20
