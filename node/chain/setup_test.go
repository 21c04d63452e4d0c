package chain

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"

	sessionstest "github.com/oraculum-network/oraculum/node/sessions/testing"
	storagetest "github.com/oraculum-network/oraculum/node/storage/testing"
	"github.com/oraculum-network/oraculum/shared/testutil/require"
	"github.com/oraculum-network/oraculum/types"
)

func testConsensusConstants() types.ConsensusConstants {
	return types.ConsensusConstants{
		CheckpointZeroTimestamp: 1589321400,
		CheckpointsPeriod:       30,
		BootstrapHash:           types.Hash{0x01},
		GenesisHash:             types.Hash{0x02},
		ActivityPeriod:          100,
		SuperblockPeriod:        10,
		CollateralMinimum:       1000,
		CollateralAge:           10,
	}
}

func testService(t *testing.T) (*Service, *sessionstest.MockGateway) {
	t.Helper()
	gateway := &sessionstest.MockGateway{}
	constants := testConsensusConstants()
	info := &types.ChainInfo{
		Environment:        "test",
		ConsensusConstants: constants,
		HighestBlockCheckpoint: types.CheckpointBeacon{
			HashPrevBlock: constants.BootstrapHash,
		},
	}
	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)
	s, err := NewService(context.Background(), &Config{
		DB:                 storagetest.SetupDB(t),
		Gateway:            gateway,
		ChainInfo:          info,
		MiningEnabled:      false,
		ConsensusThreshold: 60,
		TxPendingTimeout:   time.Minute,
		SecretKey:          key,
	})
	require.NoError(t, err)
	s.initializeFromStorage(s.ctx)
	t.Cleanup(s.cancel)
	return s, gateway
}

// makeBlock crafts a minimal block on top of the given tip.
func makeBlock(epoch types.Epoch, prev types.Hash) *types.Block {
	return &types.Block{
		BlockHeader: types.BlockHeader{
			Beacon: types.CheckpointBeacon{
				Checkpoint:    epoch,
				HashPrevBlock: prev,
			},
		},
		Txns: types.BlockTransactions{
			Mint: types.MintTransaction{
				Epoch:  epoch,
				Output: types.ValueTransferOutput{Value: blockReward(epoch)},
			},
		},
	}
}

// makeChain builds n chained blocks at the given epochs, starting on top of
// the service's tip.
func makeChain(s *Service, epochsList []types.Epoch) []*types.Block {
	prev := s.getChainBeacon().HashPrevBlock
	blocks := make([]*types.Block, 0, len(epochsList))
	for _, e := range epochsList {
		b := makeBlock(e, prev)
		blocks = append(blocks, b)
		prev = b.Hash()
	}
	return blocks
}

func setEpoch(s *Service, e types.Epoch) {
	epoch := e
	s.currentEpoch = &epoch
}

func lastBeaconOf(t *testing.T, s *Service) types.LastBeacon {
	t.Helper()
	return types.LastBeacon{
		HighestBlockCheckpoint:      s.getChainBeacon(),
		HighestSuperblockCheckpoint: s.getSuperblockBeacon(),
	}
}
