package types

import (
	"github.com/oraculum-network/oraculum/shared/hashutil"
)

// SuperBlock is the periodic aggregate over a window of consecutive epochs
// used to finalize history. Construction is deterministic given the block
// hashes of the window, the active reputation set at that point and the
// previous superblock hash.
type SuperBlock struct {
	Index                  uint32 `json:"index"`
	ARSLength              uint64 `json:"arsLength"`
	ARSRoot                Hash   `json:"arsRoot"`
	BlocksRoot             Hash   `json:"blocksRoot"`
	LastBlockInSuperblock  Hash   `json:"lastBlockInSuperblock"`
	PreviousSuperblockHash Hash   `json:"previousSuperblockHash"`
}

// Hash returns the digest of the superblock contents.
func (s *SuperBlock) Hash() Hash {
	return CanonicalHash(s)
}

// SuperBlockVote is a signed vote for the superblock an identity constructed
// locally at a superblock boundary.
type SuperBlockVote struct {
	SuperblockHash     Hash           `json:"superblockHash"`
	SuperblockIndex    uint32         `json:"superblockIndex"`
	Secp256k1Signature KeyedSignature `json:"secp256k1Signature"`
}

// Issuer is the identity that produced the vote.
func (v *SuperBlockVote) Issuer() PublicKeyHash {
	return v.Secp256k1Signature.PublicKeyHash()
}

// Hash returns the digest of the vote, used for gossip deduplication.
func (v *SuperBlockVote) Hash() Hash {
	return CanonicalHash(v)
}

// AddVoteResult classifies an incoming superblock vote.
type AddVoteResult int

// The possible outcomes of adding a vote to the superblock state.
const (
	// VoteValid: the vote targets the current superblock and its issuer
	// belongs to the signing committee.
	VoteValid AddVoteResult = iota
	// VoteNotInCommittee: the issuer is not allowed to vote this superblock.
	VoteNotInCommittee
	// VoteDouble: the issuer already voted this superblock.
	VoteDouble
	// VoteWrongHash: the vote targets the current index but a different
	// superblock hash.
	VoteWrongHash
	// VoteMaybeValid: the vote targets a future superblock index, so it
	// cannot be validated yet.
	VoteMaybeValid
	// VoteOld: the vote targets an already-finalized superblock index.
	VoteOld
)

// SuperBlockState maintains the rolling superblock layer: the current
// superblock, its signing committee and the outstanding votes.
type SuperBlockState struct {
	CurrentBeacon     CheckpointBeacon                  `json:"currentBeacon"`
	PreviousBeacon    CheckpointBeacon                  `json:"previousBeacon"`
	CurrentSuperblock *SuperBlock                       `json:"currentSuperblock"`
	SigningCommittee  []PublicKeyHash                   `json:"signingCommittee"`
	Votes             map[PublicKeyHash]*SuperBlockVote `json:"votes"`
}

// NewSuperBlockState returns a state anchored at the bootstrap superblock.
func NewSuperBlockState(bootstrapHash Hash) *SuperBlockState {
	return &SuperBlockState{
		CurrentBeacon: CheckpointBeacon{Checkpoint: 0, HashPrevBlock: bootstrapHash},
		Votes:         make(map[PublicKeyHash]*SuperBlockVote),
	}
}

// GetBeacon returns the beacon of the most recently constructed superblock.
func (s *SuperBlockState) GetBeacon() CheckpointBeacon {
	return s.CurrentBeacon
}

// GetCurrentSuperblockVotes returns the outstanding votes for the current
// superblock.
func (s *SuperBlockState) GetCurrentSuperblockVotes() []*SuperBlockVote {
	votes := make([]*SuperBlockVote, 0, len(s.Votes))
	for _, v := range s.Votes {
		votes = append(votes, v)
	}
	return votes
}

// BuildSuperblock constructs the superblock of the given index from the block
// hashes of its epoch window and the active reputation set, rotates the vote
// set and returns the new superblock.
func (s *SuperBlockState) BuildSuperblock(blockHashes []Hash, ars []PublicKeyHash, index uint32, lastBlock Hash) *SuperBlock {
	arsLeaves := make([][32]byte, len(ars))
	for i, pkh := range ars {
		var leaf [32]byte
		copy(leaf[:], pkh[:])
		arsLeaves[i] = leaf
	}
	blockLeaves := make([][32]byte, len(blockHashes))
	for i, h := range blockHashes {
		blockLeaves[i] = h
	}
	sb := &SuperBlock{
		Index:                  index,
		ARSLength:              uint64(len(ars)),
		ARSRoot:                Hash(hashutil.MerkleRoot(arsLeaves)),
		BlocksRoot:             Hash(hashutil.MerkleRoot(blockLeaves)),
		LastBlockInSuperblock:  lastBlock,
		PreviousSuperblockHash: s.CurrentBeacon.HashPrevBlock,
	}
	s.PreviousBeacon = s.CurrentBeacon
	s.CurrentBeacon = CheckpointBeacon{Checkpoint: index, HashPrevBlock: sb.Hash()}
	s.CurrentSuperblock = sb
	s.SigningCommittee = ars
	s.Votes = make(map[PublicKeyHash]*SuperBlockVote)
	return sb
}

// AddVote classifies a vote against the current superblock and records it
// when valid.
func (s *SuperBlockState) AddVote(vote *SuperBlockVote) AddVoteResult {
	switch {
	case vote.SuperblockIndex > s.CurrentBeacon.Checkpoint:
		return VoteMaybeValid
	case vote.SuperblockIndex < s.CurrentBeacon.Checkpoint:
		return VoteOld
	case vote.SuperblockHash != s.CurrentBeacon.HashPrevBlock:
		return VoteWrongHash
	}
	issuer := vote.Issuer()
	if !s.committeeContains(issuer) {
		return VoteNotInCommittee
	}
	if _, voted := s.Votes[issuer]; voted {
		return VoteDouble
	}
	if s.Votes == nil {
		s.Votes = make(map[PublicKeyHash]*SuperBlockVote)
	}
	s.Votes[issuer] = vote
	return VoteValid
}

// VoteTally returns the most voted superblock hash among the outstanding
// votes and its support.
func (s *SuperBlockState) VoteTally() (Hash, int) {
	counts := make(map[Hash]int)
	for _, v := range s.Votes {
		counts[v.SuperblockHash]++
	}
	var best Hash
	bestCount := 0
	for h, c := range counts {
		if c > bestCount {
			best, bestCount = h, c
		}
	}
	return best, bestCount
}

func (s *SuperBlockState) committeeContains(pkh PublicKeyHash) bool {
	for _, member := range s.SigningCommittee {
		if member == pkh {
			return true
		}
	}
	return false
}
