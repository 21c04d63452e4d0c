package types

import (
	"testing"

	"github.com/oraculum-network/oraculum/shared/testutil/assert"
	"github.com/oraculum-network/oraculum/shared/testutil/require"
)

func testVote(issuer byte, index uint32, hash Hash) *SuperBlockVote {
	return &SuperBlockVote{
		SuperblockHash:  hash,
		SuperblockIndex: index,
		Secp256k1Signature: KeyedSignature{
			PublicKey: []byte{issuer},
		},
	}
}

func TestBuildSuperblockDeterministic(t *testing.T) {
	blocks := []Hash{{0x01}, {0x02}, {0x03}}
	ars := []PublicKeyHash{pkhOf(1), pkhOf(2)}

	a := NewSuperBlockState(Hash{0xb0})
	b := NewSuperBlockState(Hash{0xb0})
	sbA := a.BuildSuperblock(blocks, ars, 1, blocks[2])
	sbB := b.BuildSuperblock(blocks, ars, 1, blocks[2])

	// Construction is deterministic given identical inputs.
	assert.Equal(t, sbA.Hash(), sbB.Hash())
	assert.Equal(t, uint64(2), sbA.ARSLength)
	assert.Equal(t, Hash{0xb0}, sbA.PreviousSuperblockHash)
	assert.Equal(t, CheckpointBeacon{Checkpoint: 1, HashPrevBlock: sbA.Hash()}, a.GetBeacon())

	// Different inputs, different hash.
	c := NewSuperBlockState(Hash{0xb0})
	sbC := c.BuildSuperblock(blocks[:2], ars, 1, blocks[1])
	assert.NotEqual(t, sbA.Hash(), sbC.Hash())
}

func TestBuildSuperblockChains(t *testing.T) {
	s := NewSuperBlockState(Hash{0xb0})
	sb1 := s.BuildSuperblock([]Hash{{0x01}}, nil, 1, Hash{0x01})
	sb2 := s.BuildSuperblock([]Hash{{0x02}}, nil, 2, Hash{0x02})

	assert.Equal(t, sb1.Hash(), sb2.PreviousSuperblockHash)
	assert.Equal(t, CheckpointBeacon{Checkpoint: 1, HashPrevBlock: sb1.Hash()}, s.PreviousBeacon)
}

func TestSuperblockVoteClassification(t *testing.T) {
	s := NewSuperBlockState(Hash{0xb0})
	committeeKey := KeyedSignature{PublicKey: []byte{0x07}}
	s.BuildSuperblock([]Hash{{0x01}}, []PublicKeyHash{committeeKey.PublicKeyHash()}, 1, Hash{0x01})
	current := s.GetBeacon()

	// Valid vote from a committee member.
	valid := testVote(0x07, current.Checkpoint, current.HashPrevBlock)
	assert.Equal(t, VoteValid, s.AddVote(valid))
	require.Equal(t, 1, len(s.Votes))

	// Voting twice is flagged.
	assert.Equal(t, VoteDouble, s.AddVote(valid))

	// Outsiders cannot vote.
	outsider := testVote(0x09, current.Checkpoint, current.HashPrevBlock)
	assert.Equal(t, VoteNotInCommittee, s.AddVote(outsider))

	// Wrong hash for the current index.
	wrongHash := testVote(0x07, current.Checkpoint, Hash{0xff})
	assert.Equal(t, VoteWrongHash, s.AddVote(wrongHash))

	// Future and past indexes.
	assert.Equal(t, VoteMaybeValid, s.AddVote(testVote(0x07, current.Checkpoint+1, Hash{0x01})))
	assert.Equal(t, VoteOld, s.AddVote(testVote(0x07, current.Checkpoint-1, Hash{0x01})))
}

func TestSuperblockVoteTally(t *testing.T) {
	s := NewSuperBlockState(Hash{0xb0})
	members := []PublicKeyHash{}
	keys := []KeyedSignature{}
	for b := byte(1); b <= 3; b++ {
		k := KeyedSignature{PublicKey: []byte{b}}
		keys = append(keys, k)
		members = append(members, k.PublicKeyHash())
	}
	s.BuildSuperblock([]Hash{{0x01}}, members, 1, Hash{0x01})
	current := s.GetBeacon()

	for _, k := range keys[:2] {
		s.AddVote(&SuperBlockVote{
			SuperblockHash:     current.HashPrevBlock,
			SuperblockIndex:    current.Checkpoint,
			Secp256k1Signature: k,
		})
	}
	best, count := s.VoteTally()
	assert.Equal(t, current.HashPrevBlock, best)
	assert.Equal(t, 2, count)
}

func TestBuildSuperblockRotatesVotes(t *testing.T) {
	s := NewSuperBlockState(Hash{0xb0})
	member := KeyedSignature{PublicKey: []byte{0x07}}
	s.BuildSuperblock(nil, []PublicKeyHash{member.PublicKeyHash()}, 1, Hash{0x01})
	current := s.GetBeacon()
	s.AddVote(testVote(0x07, current.Checkpoint, current.HashPrevBlock))
	require.Equal(t, 1, len(s.Votes))

	s.BuildSuperblock(nil, nil, 2, Hash{0x02})
	assert.Equal(t, 0, len(s.Votes))
}
