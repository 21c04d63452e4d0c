package chain

import (
	"testing"

	"github.com/oraculum-network/oraculum/shared/testutil/assert"
	"github.com/oraculum-network/oraculum/shared/testutil/require"
	"github.com/oraculum-network/oraculum/types"
)

func epochsOf(blocks []*types.Block) []types.Epoch {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]types.Epoch, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Epoch())
	}
	return out
}

func TestSplitBlocksBatchAtTarget(t *testing.T) {
	b := func(epochs ...types.Epoch) []*types.Block {
		out := make([]*types.Block, 0, len(epochs))
		for _, e := range epochs {
			out = append(out, makeBlock(e, types.Hash{}))
		}
		return out
	}
	const period = 10

	type part struct {
		epochs []types.Epoch
		ok     bool
	}
	tests := []struct {
		name         string
		target       types.Epoch
		blocks       []*types.Block
		currentEpoch types.Epoch
		p1           []types.Epoch
		p2, p3, p4   part
		nextIndex    *uint32
	}{
		{name: "empty", target: 0, blocks: nil, p1: nil},
		{name: "t0 single", target: 0, blocks: b(0), p1: nil, p2: part{[]types.Epoch{0}, true}},
		{name: "t0 within window", target: 0, blocks: b(0, 8), p1: nil, p2: part{[]types.Epoch{0, 8}, true}},
		{
			name: "t0 window edge spawns empty part3", target: 0, blocks: b(0, 9),
			p2: part{[]types.Epoch{0, 9}, true}, p3: part{nil, true},
		},
		{
			name: "t0 two windows", target: 0, blocks: b(0, 10),
			p2: part{[]types.Epoch{0}, true}, p3: part{[]types.Epoch{10}, true},
		},
		{
			// Spec seed scenario: target=0, blocks [0,10,19].
			name: "t0 edge spawns empty part4", target: 0, blocks: b(0, 10, 19),
			p2: part{[]types.Epoch{0}, true}, p3: part{[]types.Epoch{10, 19}, true}, p4: part{nil, true},
		},
		{
			name: "t0 part4 overflow", target: 0, blocks: b(0, 10, 20),
			p2: part{[]types.Epoch{0}, true}, p3: part{[]types.Epoch{10}, true}, p4: part{[]types.Epoch{20}, true},
		},
		{name: "t1 below target", target: 1, blocks: b(0), p1: []types.Epoch{0}},
		{name: "t1 below target 2", target: 1, blocks: b(0, 8), p1: []types.Epoch{0, 8}},
		{
			name: "t1 boundary spawns empty part2", target: 1, blocks: b(0, 9),
			p1: []types.Epoch{0, 9}, p2: part{nil, true},
		},
		{
			name: "t1 split", target: 1, blocks: b(0, 10),
			p1: []types.Epoch{0}, p2: part{[]types.Epoch{10}, true},
		},
		{
			name: "t1 split within", target: 1, blocks: b(0, 8, 11),
			p1: []types.Epoch{0, 8}, p2: part{[]types.Epoch{11}, true},
		},
		{
			name: "t1 full window", target: 1, blocks: b(0, 9, 10, 18),
			p1: []types.Epoch{0, 9}, p2: part{[]types.Epoch{10, 18}, true},
		},
		{
			name: "t1 full window edge", target: 1, blocks: b(0, 9, 10, 19),
			p1: []types.Epoch{0, 9}, p2: part{[]types.Epoch{10, 19}, true}, p3: part{nil, true},
		},
		{
			name: "t1 three windows", target: 1, blocks: b(0, 10, 20),
			p1: []types.Epoch{0}, p2: part{[]types.Epoch{10}, true}, p3: part{[]types.Epoch{20}, true},
		},
		{
			// Spec seed scenario: target=1, blocks [0,9,10,19,20,21].
			name: "t1 spec grid", target: 1, blocks: b(0, 9, 10, 19, 20, 21),
			p1: []types.Epoch{0, 9}, p2: part{[]types.Epoch{10, 19}, true}, p3: part{[]types.Epoch{20, 21}, true},
		},
		{
			name: "t2 far ahead", target: 2, blocks: b(100),
			p2: part{nil, true}, p3: part{nil, true}, p4: part{[]types.Epoch{100}, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &types.SyncTarget{
				Superblock: types.CheckpointBeacon{Checkpoint: tt.target},
			}
			// Keep the current epoch inside the target superblock window so
			// that nextIndex stays nil unless the test overrides it.
			currentEpoch := tt.currentEpoch
			if currentEpoch == 0 {
				currentEpoch = tt.target * period
			}
			p1, p2, p3, p4, ok2, ok3, ok4, nextIndex := splitBlocksBatchAtTarget(tt.blocks, currentEpoch, target, period)

			assert.DeepEqual(t, tt.p1, epochsOf(p1), "part1")
			assert.Equal(t, tt.p2.ok, ok2, "part2 presence")
			assert.DeepEqual(t, tt.p2.epochs, epochsOf(p2), "part2")
			assert.Equal(t, tt.p3.ok, ok3, "part3 presence")
			assert.DeepEqual(t, tt.p3.epochs, epochsOf(p3), "part3")
			assert.Equal(t, tt.p4.ok, ok4, "part4 presence")
			assert.DeepEqual(t, tt.p4.epochs, epochsOf(p4), "part4")
			assert.Equal(t, (*uint32)(nil), nextIndex, "nextIndex")

			// Coverage: concatenating the four parts yields the input.
			var all []types.Epoch
			all = append(all, epochsOf(p1)...)
			all = append(all, epochsOf(p2)...)
			all = append(all, epochsOf(p3)...)
			all = append(all, epochsOf(p4)...)
			assert.DeepEqual(t, epochsOf(tt.blocks), all, "coverage")
		})
	}
}

func TestSplitBlocksBatchNextIndex(t *testing.T) {
	target := &types.SyncTarget{Superblock: types.CheckpointBeacon{Checkpoint: 1}}

	// Current epoch inside the target window: no further superblock needed.
	_, _, _, _, _, _, _, nextIndex := splitBlocksBatchAtTarget(nil, 15, target, 10)
	assert.Equal(t, (*uint32)(nil), nextIndex)

	// Current epoch one window past the target: the next superblock to construct is
	// the one the network is currently in.
	_, _, _, _, _, _, _, nextIndex = splitBlocksBatchAtTarget(nil, 25, target, 10)
	require.NotNil(t, nextIndex)
	assert.Equal(t, uint32(2), *nextIndex)
}
