package chain

import (
	"go.opencensus.io/trace"

	"github.com/oraculum-network/oraculum/node/sessions"
	"github.com/oraculum-network/oraculum/types"
)

// AddSuperBlockVote delivers a gossiped superblock vote to the chain
// manager.
func (s *Service) AddSuperBlockVote(vote *types.SuperBlockVote) {
	s.do(func() { s.handleSuperBlockVote(vote) })
}

// handleSuperBlockVote runs on the run loop.
func (s *Service) handleSuperBlockVote(vote *types.SuperBlockVote) {
	_, span := trace.StartSpan(s.ctx, "chain.handleSuperBlockVote")
	defer span.End()

	voteHash := vote.Hash()
	if _, seen := s.seenSuperblockVotes.Get(voteHash); seen {
		return
	}
	s.seenSuperblockVotes.Add(voteHash, struct{}{})
	superblockVotesReceived.Inc()

	// Votes arriving during catch-up cannot be validated against a signing
	// committee we have not constructed yet. Park them until the node is
	// synced.
	if s.smState != Synced {
		s.tempSuperblockVotes = append(s.tempSuperblockVotes, vote)
		return
	}

	s.addSuperblockVote(vote)
}

// addSuperblockVote classifies one vote against the current superblock
// state and rebroadcasts the useful ones.
func (s *Service) addSuperblockVote(vote *types.SuperBlockVote) {
	switch s.chainState.SuperblockState.AddVote(vote) {
	case types.VoteValid:
		s.cfg.Gateway.Broadcast(sessions.SendSuperBlockVote{Vote: vote}, false)
	case types.VoteMaybeValid:
		// The vote targets a future superblock: keep it for the next
		// rotation.
		s.tempSuperblockVotes = append(s.tempSuperblockVotes, vote)
	case types.VoteNotInCommittee:
		log.WithField("issuer", vote.Issuer()).Debug("Superblock vote from outside the signing committee")
	case types.VoteDouble:
		log.WithField("issuer", vote.Issuer()).Warn("Double superblock vote")
	case types.VoteWrongHash:
		log.WithField("hash", vote.SuperblockHash).Debug("Superblock vote for a different superblock")
	case types.VoteOld:
	}
}

// replayTempSuperblockVotes replays the votes parked during catch-up. Called
// exactly once, on the AlmostSynced to Synced edge.
func (s *Service) replayTempSuperblockVotes() {
	votes := s.tempSuperblockVotes
	s.tempSuperblockVotes = nil
	for _, vote := range votes {
		s.addSuperblockVote(vote)
	}
}

// voteForSuperblock signs and gossips our vote for a freshly constructed
// superblock.
func (s *Service) voteForSuperblock(superblock *types.SuperBlock) {
	digest := types.CanonicalHash(struct {
		Hash  types.Hash `json:"hash"`
		Index uint32     `json:"index"`
	}{Hash: superblock.Hash(), Index: superblock.Index})
	signature, err := s.signer.Sign(s.ctx, digest)
	if err != nil {
		log.WithError(err).Error("Could not sign superblock vote")
		return
	}
	vote := &types.SuperBlockVote{
		SuperblockHash:     superblock.Hash(),
		SuperblockIndex:    superblock.Index,
		Secp256k1Signature: signature,
	}
	s.chainState.SuperblockState.AddVote(vote)
	s.cfg.Gateway.Broadcast(sessions.SendSuperBlockVote{Vote: vote}, false)
}
