package types

import (
	"testing"

	"github.com/oraculum-network/oraculum/shared/testutil/assert"
	"github.com/oraculum-network/oraculum/shared/testutil/require"
)

func TestBlockChainInsertKeepsOrder(t *testing.T) {
	var bc BlockChain
	bc.Insert(5, Hash{0x05})
	bc.Insert(1, Hash{0x01})
	bc.Insert(3, Hash{0x03})

	require.Equal(t, 3, bc.Len())
	assert.Equal(t, Epoch(1), bc.Entries[0].Epoch)
	assert.Equal(t, Epoch(3), bc.Entries[1].Epoch)
	assert.Equal(t, Epoch(5), bc.Entries[2].Epoch)

	// Re-inserting an epoch replaces its hash without duplicating.
	bc.Insert(3, Hash{0x33})
	require.Equal(t, 3, bc.Len())
	assert.Equal(t, Hash{0x33}, bc.Entries[1].Hash)
}

func TestBlockChainRange(t *testing.T) {
	var bc BlockChain
	for _, e := range []Epoch{0, 2, 4, 6, 8} {
		bc.Insert(e, Hash{byte(e)})
	}
	entries := bc.Range(2, 6)
	require.Equal(t, 3, len(entries))
	assert.Equal(t, Epoch(2), entries[0].Epoch)
	assert.Equal(t, Epoch(6), entries[2].Epoch)

	assert.Equal(t, 0, len(bc.Range(9, 100)))
}

func TestBlockChainMax(t *testing.T) {
	var bc BlockChain
	_, ok := bc.Max()
	assert.Equal(t, false, ok)

	bc.Insert(7, Hash{0x07})
	max, ok := bc.Max()
	require.Equal(t, true, ok)
	assert.Equal(t, Epoch(7), max.Epoch)
}

func TestChainStateClone(t *testing.T) {
	info := &ChainInfo{ConsensusConstants: ConsensusConstants{ActivityPeriod: 10}}
	state := NewChainState(info)
	state.UnspentOutputsPool.Insert(OutputPointer{TransactionID: Hash{0x01}}, ValueTransferOutput{Value: 7}, 1)
	state.BlockChain.Insert(1, Hash{0x0a})

	clone := state.Clone()
	clone.UnspentOutputsPool.Insert(OutputPointer{TransactionID: Hash{0x02}}, ValueTransferOutput{Value: 9}, 2)
	clone.BlockChain.Insert(2, Hash{0x0b})
	clone.ChainInfo.HighestBlockCheckpoint = CheckpointBeacon{Checkpoint: 99}

	// The original is unaffected by mutations of the clone.
	assert.Equal(t, 1, state.UnspentOutputsPool.Len())
	assert.Equal(t, 1, state.BlockChain.Len())
	assert.Equal(t, Epoch(0), state.ChainInfo.HighestBlockCheckpoint.Checkpoint)
}

func TestMagicNumberDependsOnConstants(t *testing.T) {
	mainnet := MainnetConsensusConstants()
	testnet := TestnetConsensusConstants()

	// Stable for equal constants, different across networks.
	mainnetAgain := MainnetConsensusConstants()
	assert.Equal(t, mainnet.MagicNumber(), mainnetAgain.MagicNumber())
	assert.NotEqual(t, mainnet.MagicNumber(), testnet.MagicNumber())

	tweaked := mainnet
	tweaked.SuperblockPeriod++
	assert.NotEqual(t, mainnet.MagicNumber(), tweaked.MagicNumber())
}

func TestUtxoDiffApply(t *testing.T) {
	pool := NewUnspentOutputsPool()
	spentPointer := OutputPointer{TransactionID: Hash{0x01}}
	pool.Insert(spentPointer, ValueTransferOutput{Value: 5}, 1)

	diff := NewUtxoDiff()
	diff.Remove(spentPointer)
	created := OutputPointer{TransactionID: Hash{0x02}, OutputIndex: 1}
	diff.Insert(created, ValueTransferOutput{Value: 3}, 2)

	diff.ApplyTo(&pool)

	assert.Equal(t, false, pool.Contains(spentPointer))
	entry, ok := pool.Get(created)
	require.Equal(t, true, ok)
	assert.Equal(t, uint64(3), entry.Output.Value)
	assert.Equal(t, uint32(2), entry.BlockNumber)
}

func TestOutputPointerRoundTrip(t *testing.T) {
	pointer := OutputPointer{TransactionID: Hash{0xab}, OutputIndex: 3}
	parsed, err := OutputPointerFromString(pointer.String())
	require.NoError(t, err)
	assert.Equal(t, pointer, parsed)

	_, err = OutputPointerFromString("nonsense")
	assert.ErrorContains(t, "malformed output pointer", err)
}
