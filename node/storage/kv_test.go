package storage_test

import (
	"context"
	"testing"

	"github.com/oraculum-network/oraculum/node/storage"
	storagetest "github.com/oraculum-network/oraculum/node/storage/testing"
	"github.com/oraculum-network/oraculum/shared/testutil/assert"
	"github.com/oraculum-network/oraculum/shared/testutil/require"
	"github.com/oraculum-network/oraculum/types"
)

func TestChainStateRoundTrip(t *testing.T) {
	db := storagetest.SetupDB(t)
	ctx := context.Background()

	// Empty store: no snapshot yet.
	state, err := db.ChainState(ctx)
	require.NoError(t, err)
	assert.Equal(t, (*types.ChainState)(nil), state)

	info := &types.ChainInfo{
		Environment:        "test",
		ConsensusConstants: types.TestnetConsensusConstants(),
		HighestBlockCheckpoint: types.CheckpointBeacon{
			Checkpoint:    42,
			HashPrevBlock: types.Hash{0x42},
		},
	}
	original := types.NewChainState(info)
	original.BlockChain.Insert(42, types.Hash{0x42})
	original.UnspentOutputsPool.Insert(
		types.OutputPointer{TransactionID: types.Hash{0x01}, OutputIndex: 1},
		types.ValueTransferOutput{Value: 7},
		3,
	)
	require.NoError(t, original.ReputationEngine.ARS.Update([]types.PublicKeyHash{{0x07}}, 42))

	require.NoError(t, db.SaveChainState(ctx, original))

	restored, err := db.ChainState(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, types.Epoch(42), restored.ChainInfo.HighestBlockCheckpoint.Checkpoint)
	assert.Equal(t, 1, restored.BlockChain.Len())
	assert.Equal(t, 1, restored.UnspentOutputsPool.Len())
	assert.Equal(t, true, restored.ReputationEngine.ARS.Contains(types.PublicKeyHash{0x07}))

	// The snapshot is overwritten, not appended.
	original.BlockChain.Insert(43, types.Hash{0x43})
	require.NoError(t, db.SaveChainState(ctx, original))
	restored, err = db.ChainState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, restored.BlockChain.Len())
}

func TestBlocksRoundTrip(t *testing.T) {
	db := storagetest.SetupDB(t)
	ctx := context.Background()

	block := &types.Block{
		BlockHeader: types.BlockHeader{
			Beacon: types.CheckpointBeacon{Checkpoint: 5, HashPrevBlock: types.Hash{0x05}},
		},
		Txns: types.BlockTransactions{
			Mint: types.MintTransaction{Epoch: 5, Output: types.ValueTransferOutput{Value: 50}},
		},
	}
	require.NoError(t, db.SaveBlock(ctx, block))

	assert.Equal(t, true, db.HasBlock(ctx, block.Hash()))
	assert.Equal(t, false, db.HasBlock(ctx, types.Hash{0xff}))

	got, err := db.Block(ctx, block.Hash())
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), got.Hash())
	assert.Equal(t, uint64(50), got.Txns.Mint.Output.Value)

	_, err = db.Block(ctx, types.Hash{0xff})
	assert.Equal(t, storage.ErrNotFound, err)

	hash, err := db.BlockHashByEpoch(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), hash)

	_, err = db.BlockHashByEpoch(ctx, 6)
	assert.Equal(t, storage.ErrNotFound, err)
}

func TestSaveBlocksBatch(t *testing.T) {
	db := storagetest.SetupDB(t)
	ctx := context.Background()

	var blocks []*types.Block
	for e := types.Epoch(1); e <= 3; e++ {
		blocks = append(blocks, &types.Block{
			BlockHeader: types.BlockHeader{Beacon: types.CheckpointBeacon{Checkpoint: e}},
		})
	}
	require.NoError(t, db.SaveBlocksBatch(ctx, blocks))
	for _, b := range blocks {
		assert.Equal(t, true, db.HasBlock(ctx, b.Hash()))
	}
}

func TestDataRequestReportRoundTrip(t *testing.T) {
	db := storagetest.SetupDB(t)
	ctx := context.Background()

	report := &types.DataRequestReport{
		DRPointer: types.Hash{0x0d},
		DataRequestOutput: types.DataRequestOutput{
			WitnessReward: 10,
			Witnesses:     3,
		},
		Info: types.DataRequestInfo{CurrentStage: types.StageFinished},
	}
	require.NoError(t, db.SaveDataRequestReport(ctx, report))

	got, err := db.DataRequestReport(ctx, report.DRPointer)
	require.NoError(t, err)
	assert.Equal(t, report.DRPointer, got.DRPointer)
	assert.Equal(t, uint16(3), got.DataRequestOutput.Witnesses)
	assert.Equal(t, types.StageFinished, got.Info.CurrentStage)

	_, err = db.DataRequestReport(ctx, types.Hash{0xee})
	assert.Equal(t, storage.ErrNotFound, err)
}
