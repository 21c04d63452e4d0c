package chain

import (
	"testing"

	"github.com/oraculum-network/oraculum/shared/testutil/assert"
	"github.com/oraculum-network/oraculum/shared/testutil/require"
	"github.com/oraculum-network/oraculum/types"
)

func TestProcessCandidateKeepsBest(t *testing.T) {
	s, _ := testService(t)
	setEpoch(s, 1)
	s.setState(Synced)

	tip := s.getChainBeacon().HashPrevBlock
	a := makeBlock(1, tip)
	a.BlockHeader.Proof = []byte{0x01}
	b := makeBlock(1, tip)
	b.BlockHeader.Proof = []byte{0x02}

	s.processCandidate(a)
	require.NotNil(t, s.bestCandidate)
	first := s.bestCandidate.Block.Hash()

	s.processCandidate(b)
	second := s.bestCandidate.Block.Hash()

	// Same proposer reputation (zero): the lower proof hash wins, and the
	// selection is deterministic regardless of arrival order.
	s.clearCandidates()
	s.processCandidate(b)
	s.processCandidate(a)
	assert.Equal(t, second, s.bestCandidate.Block.Hash())
	_ = first
}

func TestProcessCandidateDeduplicates(t *testing.T) {
	s, _ := testService(t)
	setEpoch(s, 1)
	s.setState(Synced)

	block := makeBlock(1, s.getChainBeacon().HashPrevBlock)
	s.processCandidate(block)
	require.Equal(t, 1, len(s.candidates))

	// The same candidate arriving again is dropped by the seen cache.
	s.processCandidate(block)
	assert.Equal(t, 1, len(s.candidates))
}

func TestProcessCandidateWrongEpochIsHeldButNotSelected(t *testing.T) {
	s, _ := testService(t)
	setEpoch(s, 1)
	s.setState(Synced)

	stale := makeBlock(7, s.getChainBeacon().HashPrevBlock)
	s.processCandidate(stale)

	// Held for consensus lookup, but never competing for consolidation.
	assert.Equal(t, 1, len(s.candidates))
	assert.Equal(t, (*BlockCandidate)(nil), s.bestCandidate)
}

func TestCandidatesDiscardedOnEpochBoundary(t *testing.T) {
	s, _ := testService(t)
	s.peersBeaconsReceived = true
	setEpoch(s, 1)
	s.setState(Synced)

	s.processCandidate(makeBlock(1, s.getChainBeacon().HashPrevBlock))
	require.Equal(t, 1, len(s.candidates))

	s.peersBeaconsReceived = true
	s.onEpochNotification(2)

	assert.Equal(t, 0, len(s.candidates))
	assert.Equal(t, (*BlockCandidate)(nil), s.bestCandidate)
}

func TestHeldCandidateShortCircuitsSync(t *testing.T) {
	s, gateway := testService(t)
	setEpoch(s, 1)

	block := makeBlock(1, s.getChainBeacon().HashPrevBlock)
	s.processCandidate(block)

	networkBeacon := types.LastBeacon{
		HighestBlockCheckpoint: types.CheckpointBeacon{
			Checkpoint:    1,
			HashPrevBlock: block.Hash(),
		},
	}
	s.handlePeersBeacons(agreeingSnapshot(networkBeacon, 4, 4))

	// The consensus block was among our candidates: consolidated directly,
	// no batch requested.
	assert.Equal(t, AlmostSynced, s.smState)
	assert.Equal(t, block.Hash(), s.getChainBeacon().HashPrevBlock)
	assert.Equal(t, 0, len(gateway.BatchRequests()))
}
