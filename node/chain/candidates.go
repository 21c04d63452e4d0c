package chain

import (
	"bytes"

	"github.com/oraculum-network/oraculum/shared/hashutil"
	"github.com/oraculum-network/oraculum/types"
)

// AddCandidates delivers blocks gossiped for the current epoch. Candidates
// are accepted in every state: while waiting for consensus a held candidate
// can short-circuit a whole sync round.
func (s *Service) AddCandidates(blocks []*types.Block) {
	s.do(func() {
		for _, block := range blocks {
			s.processCandidate(block)
		}
	})
}

// processCandidate validates a candidate and keeps the best one per epoch.
// Runs on the run loop.
func (s *Service) processCandidate(block *types.Block) {
	hash := block.Hash()
	if _, seen := s.seenCandidates.Get(hash); seen {
		return
	}
	s.seenCandidates.Add(hash, struct{}{})
	s.candidates[hash] = block

	if s.currentEpoch == nil || block.Epoch() != *s.currentEpoch {
		log.WithField("epoch", block.Epoch()).WithField("block", hash).
			Debug("Candidate is not for the current epoch")
		return
	}
	if s.smState != AlmostSynced && s.smState != Synced {
		return
	}
	if err := s.validateBlockAgainstTip(block); err != nil {
		log.WithError(err).WithField("block", hash).Debug("Invalid candidate")
		return
	}
	diff, err := s.computeUtxoDiff(block)
	if err != nil {
		log.WithError(err).WithField("block", hash).Debug("Candidate does not validate against the UTXO pool")
		return
	}

	candidate := &BlockCandidate{
		Block:      block,
		UtxoDiff:   diff,
		Reputation: s.chainState.ReputationEngine.TRS.Get(block.BlockSig.PublicKeyHash()),
		VrfProof:   types.Hash(hashutil.Hash(block.BlockHeader.Proof)),
	}
	if s.betterCandidate(candidate) {
		s.bestCandidate = candidate
	}
}

// betterCandidate decides whether the new candidate replaces the held one.
// The selection is deterministic given identical inputs: higher proposer
// reputation wins, then the lower eligibility proof hash, then the lower
// block hash.
func (s *Service) betterCandidate(candidate *BlockCandidate) bool {
	best := s.bestCandidate
	if best == nil {
		return true
	}
	if candidate.Reputation != best.Reputation {
		return candidate.Reputation > best.Reputation
	}
	if candidate.VrfProof != best.VrfProof {
		return bytes.Compare(candidate.VrfProof[:], best.VrfProof[:]) < 0
	}
	candidateHash := candidate.Block.Hash()
	bestHash := best.Block.Hash()
	return bytes.Compare(candidateHash[:], bestHash[:]) < 0
}
