package chain

import (
	"testing"

	"github.com/oraculum-network/oraculum/shared/testutil/assert"
	"github.com/oraculum-network/oraculum/shared/testutil/require"
	"github.com/oraculum-network/oraculum/types"
)

func beaconWithBlockHash(b byte) *types.LastBeacon {
	return &types.LastBeacon{
		HighestBlockCheckpoint: types.CheckpointBeacon{
			Checkpoint:    1,
			HashPrevBlock: types.Hash{b},
		},
		HighestSuperblockCheckpoint: types.CheckpointBeacon{},
	}
}

func TestBlockConsensusLessPeersThanOutbound(t *testing.T) {
	beacon1 := beaconWithBlockHash(0x6b)
	beacon2 := beaconWithBlockHash(0xd4)

	tests := []struct {
		name    string
		beacons []*types.LastBeacon
		want    *types.CheckpointBeacon
	}{
		{name: "0 peers", beacons: nil, want: nil},
		{name: "1 peer", beacons: []*types.LastBeacon{beacon1}, want: nil},
		{name: "2 peers", beacons: []*types.LastBeacon{beacon1, beacon1}, want: nil},
		{
			// The consensus percentage includes the missing peers, so this
			// is 2/4 (50%), not 2/3 (66%): no consensus at 60%.
			name:    "3 peers and 2 agree",
			beacons: []*types.LastBeacon{beacon1, beacon1, beacon2},
			want:    nil,
		},
		{
			name:    "3 peers and 3 agree",
			beacons: []*types.LastBeacon{beacon1, beacon1, beacon1},
			want:    &beacon1.HighestBlockCheckpoint,
		},
		{
			name:    "4 peers and 2 agree",
			beacons: []*types.LastBeacon{beacon1, beacon1, beacon2, beacon2},
			want:    nil,
		},
		{
			name:    "4 peers and 3 agree",
			beacons: []*types.LastBeacon{beacon1, beacon1, beacon1, beacon2},
			want:    &beacon1.HighestBlockCheckpoint,
		},
		{
			name:    "4 peers and 4 agree",
			beacons: []*types.LastBeacon{beacon1, beacon1, beacon1, beacon1},
			want:    &beacon1.HighestBlockCheckpoint,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := PeersBeacons{OutboundLimit: 4}
			for i, b := range tt.beacons {
				pb.PB = append(pb.PB, PeerBeacon{Address: addr(i), Beacon: b})
			}
			got := pb.BlockConsensus(60)
			if tt.want == nil {
				assert.Equal(t, (*types.CheckpointBeacon)(nil), got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func TestSuperblockConsensusConditionalBlock(t *testing.T) {
	sbA := types.CheckpointBeacon{Checkpoint: 3, HashPrevBlock: types.Hash{0xaa}}
	blockX := types.CheckpointBeacon{Checkpoint: 31, HashPrevBlock: types.Hash{0x01}}
	blockY := types.CheckpointBeacon{Checkpoint: 31, HashPrevBlock: types.Hash{0x02}}

	mk := func(block types.CheckpointBeacon) *types.LastBeacon {
		return &types.LastBeacon{HighestBlockCheckpoint: block, HighestSuperblockCheckpoint: sbA}
	}

	// All four peers agree on the superblock, three on the block: both
	// consensuses hold.
	pb := PeersBeacons{OutboundLimit: 4, PB: []PeerBeacon{
		{Address: addr(0), Beacon: mk(blockX)},
		{Address: addr(1), Beacon: mk(blockX)},
		{Address: addr(2), Beacon: mk(blockX)},
		{Address: addr(3), Beacon: mk(blockY)},
	}}
	consensus, isBlockMajority := pb.SuperblockConsensus(60)
	require.NotNil(t, consensus)
	assert.Equal(t, true, isBlockMajority)
	assert.Equal(t, sbA, consensus.HighestSuperblockCheckpoint)
	assert.Equal(t, blockX, consensus.HighestBlockCheckpoint)

	// Superblock consensus with a 2-2 block split: the plurality (first
	// inserted) is reported, but it is not a majority.
	pb = PeersBeacons{OutboundLimit: 4, PB: []PeerBeacon{
		{Address: addr(0), Beacon: mk(blockX)},
		{Address: addr(1), Beacon: mk(blockX)},
		{Address: addr(2), Beacon: mk(blockY)},
		{Address: addr(3), Beacon: mk(blockY)},
	}}
	consensus, isBlockMajority = pb.SuperblockConsensus(60)
	require.NotNil(t, consensus)
	assert.Equal(t, false, isBlockMajority)
	assert.Equal(t, blockX, consensus.HighestBlockCheckpoint)

	// No superblock consensus at all: nothing is reported.
	sbB := types.CheckpointBeacon{Checkpoint: 3, HashPrevBlock: types.Hash{0xbb}}
	pb = PeersBeacons{OutboundLimit: 4, PB: []PeerBeacon{
		{Address: addr(0), Beacon: &types.LastBeacon{HighestBlockCheckpoint: blockX, HighestSuperblockCheckpoint: sbA}},
		{Address: addr(1), Beacon: &types.LastBeacon{HighestBlockCheckpoint: blockX, HighestSuperblockCheckpoint: sbA}},
		{Address: addr(2), Beacon: &types.LastBeacon{HighestBlockCheckpoint: blockX, HighestSuperblockCheckpoint: sbB}},
		{Address: addr(3), Beacon: &types.LastBeacon{HighestBlockCheckpoint: blockX, HighestSuperblockCheckpoint: sbB}},
	}}
	consensus, _ = pb.SuperblockConsensus(60)
	assert.Equal(t, (*types.LastBeacon)(nil), consensus)
}

func TestConsensusMonotoneInSupport(t *testing.T) {
	beacon1 := beaconWithBlockHash(0x6b)
	beacon2 := beaconWithBlockHash(0xd4)

	pb := PeersBeacons{OutboundLimit: 4, PB: []PeerBeacon{
		{Address: addr(0), Beacon: beacon1},
		{Address: addr(1), Beacon: beacon1},
		{Address: addr(2), Beacon: beacon1},
		{Address: addr(3), Beacon: beacon2},
	}}
	got := pb.BlockConsensus(60)
	require.NotNil(t, got)

	// Replacing the disagreeing vote with one that matches the consensus
	// cannot change the result.
	pb.PB[3] = PeerBeacon{Address: addr(3), Beacon: beacon1}
	same := pb.BlockConsensus(60)
	require.NotNil(t, same)
	assert.Equal(t, *got, *same)

	// Removing a non-matching vote cannot turn a non-consensus result into
	// a consensus on a different beacon.
	pb = PeersBeacons{OutboundLimit: 4, PB: []PeerBeacon{
		{Address: addr(0), Beacon: beacon1},
		{Address: addr(1), Beacon: beacon1},
		{Address: addr(2), Beacon: beacon2},
	}}
	require.Equal(t, (*types.CheckpointBeacon)(nil), pb.BlockConsensus(60))
	pb.PB = pb.PB[:2]
	got = pb.BlockConsensus(60)
	if got != nil {
		assert.Equal(t, beacon1.HighestBlockCheckpoint, *got)
	}
}

func TestMissingPeersReduceConsensusStrength(t *testing.T) {
	beacon1 := beaconWithBlockHash(0x6b)
	// 2 agreeing peers under an outbound limit of 8 cannot reach 60%.
	pb := PeersBeacons{OutboundLimit: 8, PB: []PeerBeacon{
		{Address: addr(0), Beacon: beacon1},
		{Address: addr(1), Beacon: beacon1},
	}}
	assert.Equal(t, (*types.CheckpointBeacon)(nil), pb.BlockConsensus(60))
	consensus, _ := pb.SuperblockConsensus(60)
	assert.Equal(t, (*types.LastBeacon)(nil), consensus)
}

func TestDecidePeersToUnregister(t *testing.T) {
	beacon1 := beaconWithBlockHash(0x6b)
	beacon2 := beaconWithBlockHash(0xd4)

	// 0 peers.
	pb := PeersBeacons{OutboundLimit: 4}
	assert.Equal(t, 0, len(pb.DecidePeersToUnregister(beacon1.HighestBlockCheckpoint)))

	// 1 peer in consensus.
	pb = PeersBeacons{OutboundLimit: 4, PB: []PeerBeacon{{Address: addr(0), Beacon: beacon1}}}
	assert.Equal(t, 0, len(pb.DecidePeersToUnregister(beacon1.HighestBlockCheckpoint)))

	// 1 peer out of consensus.
	assert.DeepEqual(t, []string{addr(0)}, pb.DecidePeersToUnregister(beacon2.HighestBlockCheckpoint))

	// 2-2 split: the two disagreeing peers go.
	pb = PeersBeacons{OutboundLimit: 4, PB: []PeerBeacon{
		{Address: addr(0), Beacon: beacon1},
		{Address: addr(1), Beacon: beacon1},
		{Address: addr(2), Beacon: beacon2},
		{Address: addr(3), Beacon: beacon2},
	}}
	assert.DeepEqual(t, []string{addr(0), addr(1)}, pb.DecidePeersToUnregister(beacon2.HighestBlockCheckpoint))

	// Peers with no beacon always disagree.
	pb = PeersBeacons{OutboundLimit: 4, PB: []PeerBeacon{
		{Address: addr(0), Beacon: beacon1},
		{Address: addr(1), Beacon: beacon1},
		{Address: addr(2), Beacon: nil},
		{Address: addr(3), Beacon: nil},
	}}
	assert.DeepEqual(t, []string{addr(2), addr(3)}, pb.DecidePeersToUnregister(beacon1.HighestBlockCheckpoint))

	// All silent: everybody goes.
	pb = PeersBeacons{OutboundLimit: 4, PB: []PeerBeacon{
		{Address: addr(0)}, {Address: addr(1)}, {Address: addr(2)}, {Address: addr(3)},
	}}
	assert.DeepEqual(t, []string{addr(0), addr(1), addr(2), addr(3)},
		pb.DecidePeersToUnregister(beacon1.HighestBlockCheckpoint))
}

func TestNeededForConsensus(t *testing.T) {
	assert.Equal(t, 3, neededForConsensus(4, 60))
	assert.Equal(t, 5, neededForConsensus(8, 60))
	assert.Equal(t, 1, neededForConsensus(0, 60))
	assert.Equal(t, 4, neededForConsensus(4, 100))
}

func addr(i int) string {
	return map[int]string{
		0: "127.0.0.1:10001",
		1: "127.0.0.1:10002",
		2: "127.0.0.1:10003",
		3: "127.0.0.1:10004",
	}[i]
}
