package chain

import (
	"go.opencensus.io/trace"

	"github.com/oraculum-network/oraculum/shared/roughtime"
	"github.com/oraculum-network/oraculum/types"
)

// onEpochNotification is the per-epoch heartbeat. It runs on the run loop.
func (s *Service) onEpochNotification(epoch types.Epoch) {
	_, span := trace.StartSpan(s.ctx, "chain.onEpochNotification")
	defer span.End()

	log.WithField("epoch", epoch).Debug("Periodic epoch notification received")
	now := roughtime.Now().Unix()
	log.WithField("drift", now-s.epochConstants.TimestampAt(epoch)).
		Debug("Timestamp diff against epoch start")

	lastCheckedEpoch := s.currentEpoch
	epochCopy := epoch
	s.currentEpoch = &epochCopy

	log.WithField("state", s.smState).Debug("Epoch notification received")
	chainBeacon := s.getChainBeacon()
	log.WithField("checkpoint", chainBeacon.Checkpoint).
		WithField("hashPrevBlock", chainBeacon.HashPrevBlock).
		Debug("Chain tip")

	// Pending transactions only make sense within one epoch.
	s.mempool.ClearPendingTransactions()

	if !s.peersBeaconsReceived {
		log.Warn("No beacon messages received from peers. Moving to WaitingConsensus state")
		s.setState(WaitingConsensus)
		s.clearCandidates()
	}

	if lastCheckedEpoch != nil && epoch-*lastCheckedEpoch != 1 {
		log.WithField("missed", *lastCheckedEpoch+1).
			Warn("Missed epoch notification. Moving to WaitingConsensus state")
		s.setState(WaitingConsensus)
	}

	s.peersBeaconsReceived = false

	switch s.smState {
	case WaitingConsensus:
		if s.chainState.ChainInfo != nil {
			// Send the last beacon because otherwise the network cannot
			// bootstrap.
			s.broadcastLastBeacon(true)
		}
	case Synchronizing:
	case AlmostSynced, Synced:
		if !s.chainReady() {
			log.Error(ErrChainNotReady.Error())
			return
		}

		// Consolidate the best candidate of the closing epoch.
		if candidate := s.bestCandidate; candidate != nil {
			s.bestCandidate = nil
			if err := s.consolidateBlock(s.ctx, candidate.Block, candidate.UtxoDiff); err != nil {
				log.WithError(err).Error("Could not consolidate best candidate")
			}
		} else if epoch > 0 {
			previousEpoch := epoch - 1
			log.WithField("epoch", previousEpoch).
				Warn("There was no valid block candidate to consolidate")

			// Update the active reputation set on epochs without blocks.
			if err := s.chainState.ReputationEngine.ARS.Update(nil, previousEpoch); err != nil {
				log.WithError(err).Error("Error updating empty reputation with no blocks")
			}
		}

		// Close the superblock window when the epoch sits on a boundary.
		period := uint32(s.consensusConstants().SuperblockPeriod)
		if period > 0 && epoch%period == 0 {
			s.constructAndVoteSuperblock(epoch)
		}

		// Send the last beacon on block consolidation.
		s.broadcastLastBeacon(true)

		// Commits expire every epoch.
		s.mempool.ClearCommits()

		if s.cfg.MiningEnabled {
			// Block mining is triggered by the session layer on the peers
			// beacon timeout. Data request mining must finish before that,
			// so its commits can make it into the next block.
			s.tryMineDataRequest()
		}

		s.clearCandidates()

		log.WithField("valueTransfer", s.mempool.VTLen()).
			WithField("dataRequest", s.mempool.DRLen()).
			Debug("Transactions pool size")
	}

	s.peersBeaconsReceived = false
}

// clearCandidates resets the per-epoch candidate bookkeeping.
func (s *Service) clearCandidates() {
	s.candidates = make(map[types.Hash]*types.Block)
	s.seenCandidates.Purge()
	s.bestCandidate = nil
}
