package chain

import (
	"go.opencensus.io/trace"

	"github.com/oraculum-network/oraculum/types"
)

// PeersBeacons delivers the per-epoch snapshot of peer beacons to the chain
// manager. The session layer calls it once per epoch; eviction decisions are
// pushed back through the gateway.
func (s *Service) PeersBeacons(pb PeersBeacons) {
	s.do(func() { s.handlePeersBeacons(pb) })
}

// handlePeersBeacons runs the beacon consensus and drives the state machine
// transitions that depend on it. Runs on the run loop.
func (s *Service) handlePeersBeacons(pb PeersBeacons) {
	_, span := trace.StartSpan(s.ctx, "chain.handlePeersBeacons")
	defer span.End()

	log.WithField("state", s.smState).Debug("PeersBeacons received")
	log.WithField("beacons", pb.PrettyFormat()).Debug("Received beacons")

	// A non-empty snapshot keeps the node in the synced track for one more
	// epoch.
	if len(pb.PB) > 0 {
		s.peersBeaconsReceived = true
	}

	consensusThreshold := s.cfg.ConsensusThreshold
	beaconConsensus, isBlockMajority := pb.SuperblockConsensus(consensusThreshold)
	peersNeededForConsensus := neededForConsensus(pb.OutboundLimit, consensusThreshold)
	peersWithNoBeacon := pb.PeersWithNoBeacon()

	var peersToUnregister []string
	switch {
	case beaconConsensus != nil && isBlockMajority:
		peersToUnregister = pb.DecidePeersToUnregister(beaconConsensus.HighestBlockCheckpoint)
	case beaconConsensus != nil:
		peersToUnregister = pb.DecidePeersToUnregisterSuperblock(beaconConsensus.HighestSuperblockCheckpoint)
	case len(pb.PB) < peersNeededForConsensus:
		// Not enough outbound peers, do not unregister anybody.
		log.WithField("got", len(pb.PB)).WithField("needed", peersNeededForConsensus).
			Debug("Not enough peers to calculate the consensus")
	case s.smState == AlmostSynced || s.smState == Synced:
		log.Warn("Lack of peer consensus: peers that do not coincide with our last beacon will be unregistered")
		peersToUnregister = pb.DecidePeersToUnregister(s.getChainBeacon())
	default:
		log.Warn("Lack of peer consensus: all peers will be unregistered")
		peersToUnregister = pb.AllAddresses()
	}

	switch s.smState {
	case WaitingConsensus:
		if beaconConsensus != nil {
			s.syncTarget = &types.SyncTarget{
				Block:      beaconConsensus.HighestBlockCheckpoint,
				Superblock: beaconConsensus.HighestSuperblockCheckpoint,
			}
			log.WithField("target", *s.syncTarget).Debug("Sync target")

			consensusBeacon := beaconConsensus.HighestBlockCheckpoint
			ourBeacon := s.getChainBeacon()
			log.WithField("consensus", consensusBeacon).WithField("ours", ourBeacon).
				Debug("Consensus beacon")

			constants := s.consensusConstants()
			switch {
			case consensusBeacon.HashPrevBlock == constants.BootstrapHash:
				log.Debug("The consensus is that there is no genesis block yet")
				s.setState(WaitingConsensus)
			case ourBeacon == consensusBeacon:
				s.setState(AlmostSynced)
			case ourBeacon.Checkpoint == consensusBeacon.Checkpoint &&
				ourBeacon.HashPrevBlock != consensusBeacon.HashPrevBlock:
				// Fork case.
				log.WithField("ours", ourBeacon).WithField("consensus", consensusBeacon).
					Warnf("[CONSENSUS]: %v", ErrForkDetected)
				s.initializeFromStorage(s.ctx)
				log.Info("Restored chain state from storage")
				s.setState(WaitingConsensus)
			default:
				// The network is ahead: maybe the consensus block is already
				// among our candidates.
				candidate, ok := s.candidates[consensusBeacon.HashPrevBlock]
				s.clearCandidates()
				if ok {
					if err := s.processRequestedBlock(s.ctx, candidate); err != nil {
						log.WithError(err).Debug("Failed to consolidate consensus candidate")
						s.requestBlocksBatch()
						s.setState(Synchronizing)
					} else {
						log.Info("Consolidated consensus candidate. AlmostSynced state")
						s.setState(AlmostSynced)
					}
				} else {
					s.requestBlocksBatch()
					s.setState(Synchronizing)
				}
			}
		}
	case Synchronizing:
		if beaconConsensus != nil {
			s.syncTarget = &types.SyncTarget{
				Block:      beaconConsensus.HighestBlockCheckpoint,
				Superblock: beaconConsensus.HighestSuperblockCheckpoint,
			}
			consensusBeacon := beaconConsensus.HighestBlockCheckpoint
			ourBeacon := s.getChainBeacon()
			switch {
			case ourBeacon == consensusBeacon:
				s.setState(AlmostSynced)
			case ourBeacon.Checkpoint == consensusBeacon.Checkpoint &&
				ourBeacon.HashPrevBlock != consensusBeacon.HashPrevBlock:
				// Fork case.
				log.WithField("ours", ourBeacon).WithField("consensus", consensusBeacon).
					Warnf("[CONSENSUS]: %v", ErrForkDetected)
				s.initializeFromStorage(s.ctx)
				log.Info("Restored chain state from storage")
				s.setState(WaitingConsensus)
			}
		} else {
			s.setState(WaitingConsensus)
		}
	case AlmostSynced, Synced:
		ourBeacon := s.getChainBeacon()
		switch {
		case beaconConsensus != nil && beaconConsensus.HighestBlockCheckpoint == ourBeacon:
			if s.smState == AlmostSynced {
				// This is the only point in the whole codebase where the
				// state machine moves into the Synced state.
				log.Debug("Moving from AlmostSynced to Synced state")
				log.Info(syncedBanner)
				s.setState(Synced)
				s.replayTempSuperblockVotes()
			}
		case beaconConsensus != nil:
			// We are out of consensus, but while synced it does not matter
			// what blocks our outbound peers consolidated: we stay put until
			// the next superblock vote.
			log.WithField("ours", ourBeacon).
				WithField("consensus", beaconConsensus.HighestBlockCheckpoint).
				Warn("[CONSENSUS]: we are out of consensus with the network")
			peersToUnregister = peersWithNoBeacon
		default:
			if len(pb.PB) == 0 {
				log.Warn("[CONSENSUS]: We have not received any beacons for this epoch")
			} else {
				log.WithField("ours", ourBeacon).
					Warn("[CONSENSUS]: We are in consensus with ourselves, but the network has no consensus")
			}
			peersToUnregister = peersWithNoBeacon
		}
	}

	// While synchronizing, re-request the batch if the peer serving us went
	// silent for too long.
	if s.smState == Synchronizing && s.syncWaitingForAddBlocksSince != nil && s.currentEpoch != nil {
		if *s.currentEpoch-*s.syncWaitingForAddBlocksSince >= syncBatchWaitEpochs {
			log.Warn("Timeout for waiting for blocks achieved. Requesting blocks again")
			s.requestBlocksBatch()
		}
	}

	if len(peersToUnregister) > 0 {
		peersUnregisteredCount.Add(float64(len(peersToUnregister)))
		s.cfg.Gateway.Unregister(peersToUnregister)
	}
}

// neededForConsensus is ceil(outboundLimit * threshold / 100).
func neededForConsensus(outboundLimit uint16, consensusThreshold int) int {
	if outboundLimit == 0 {
		return 1
	}
	return (int(outboundLimit)*consensusThreshold + 99) / 100
}
