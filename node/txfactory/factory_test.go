package txfactory

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcec"

	"github.com/oraculum-network/oraculum/shared/testutil/assert"
	"github.com/oraculum-network/oraculum/shared/testutil/require"
	"github.com/oraculum-network/oraculum/types"
)

func ownPKH() types.PublicKeyHash {
	return types.PublicKeyHashFromBytes([]byte{0x02, 0x01})
}

func fundedPools(t *testing.T, values ...uint64) (*types.OwnUnspentOutputsPool, *types.UnspentOutputsPool) {
	t.Helper()
	pool := types.NewUnspentOutputsPool()
	own := types.NewOwnUnspentOutputsPool()
	for i, v := range values {
		pointer := types.OutputPointer{TransactionID: types.Hash{byte(i + 1)}, OutputIndex: 0}
		pool.Insert(pointer, types.ValueTransferOutput{PKH: ownPKH(), Value: v}, uint32(i+1))
		own.Insert(pointer)
	}
	return &own, &pool
}

func TestBuildVTTWithChange(t *testing.T) {
	own, pool := fundedPools(t, 100)
	outputs := []types.ValueTransferOutput{{PKH: types.PublicKeyHashFromBytes([]byte{0x03}), Value: 30}}

	body, err := BuildVTT(outputs, 5, own, ownPKH(), pool, 1000, 60, StrategyRandom)
	require.NoError(t, err)

	require.Equal(t, 1, len(body.Inputs))
	// 100 in, 30 out, 5 fee: 65 change back to us.
	require.Equal(t, 2, len(body.Outputs))
	assert.Equal(t, uint64(65), body.Outputs[1].Value)
	assert.Equal(t, ownPKH(), body.Outputs[1].PKH)

	// The selected input is reserved for the pending timeout.
	assert.Equal(t, uint64(1000), own.UsedAt(body.Inputs[0].OutputPointer))
}

func TestBuildVTTInsufficientFunds(t *testing.T) {
	own, pool := fundedPools(t, 10)
	outputs := []types.ValueTransferOutput{{Value: 30}}

	_, err := BuildVTT(outputs, 5, own, ownPKH(), pool, 1000, 60, StrategyRandom)
	require.NotNil(t, err)
	funds, ok := err.(InsufficientFundsError)
	require.Equal(t, true, ok)
	assert.Equal(t, uint64(10), funds.Available)
	assert.Equal(t, uint64(35), funds.Required)
}

func TestBuildVTTSkipsReservedAndTimelocked(t *testing.T) {
	pool := types.NewUnspentOutputsPool()
	own := types.NewOwnUnspentOutputsPool()

	reserved := types.OutputPointer{TransactionID: types.Hash{0x01}}
	pool.Insert(reserved, types.ValueTransferOutput{PKH: ownPKH(), Value: 100}, 1)
	own.Insert(reserved)
	own.MarkUsed(reserved, 990)

	locked := types.OutputPointer{TransactionID: types.Hash{0x02}}
	pool.Insert(locked, types.ValueTransferOutput{PKH: ownPKH(), Value: 100, TimeLock: 2000}, 1)
	own.Insert(locked)

	_, err := BuildVTT([]types.ValueTransferOutput{{Value: 50}}, 0, &own, ownPKH(), &pool, 1000, 60, StrategyRandom)
	require.NotNil(t, err)
	assert.ErrorContains(t, "available: 0", err)

	// Once the reservation times out, the output is spendable again.
	_, err = BuildVTT([]types.ValueTransferOutput{{Value: 50}}, 0, &own, ownPKH(), &pool, 1100, 60, StrategyRandom)
	assert.NoError(t, err)
}

func TestSelectionStrategies(t *testing.T) {
	own, pool := fundedPools(t, 10, 50, 100)

	body, err := BuildVTT([]types.ValueTransferOutput{{Value: 5}}, 0, own, ownPKH(), pool, 1000, 60, StrategyBigFirst)
	require.NoError(t, err)
	entry, ok := pool.Get(body.Inputs[0].OutputPointer)
	require.Equal(t, true, ok)
	assert.Equal(t, uint64(100), entry.Output.Value)

	own2, pool2 := fundedPools(t, 10, 50, 100)
	body, err = BuildVTT([]types.ValueTransferOutput{{Value: 5}}, 0, own2, ownPKH(), pool2, 1000, 60, StrategySmallFirst)
	require.NoError(t, err)
	entry, ok = pool2.Get(body.Inputs[0].OutputPointer)
	require.Equal(t, true, ok)
	assert.Equal(t, uint64(10), entry.Output.Value)
}

func TestBuildDRT(t *testing.T) {
	own, pool := fundedPools(t, 100)
	dro := types.DataRequestOutput{
		DataRequest:        types.RADRequest{Retrieve: []types.RADSource{{URL: "https://example.com"}}},
		WitnessReward:      10,
		Witnesses:          2,
		CommitAndRevealFee: 1,
	}

	body, err := BuildDRT(dro, 6, own, ownPKH(), pool, 1000, 60)
	require.NoError(t, err)
	// 100 in, 24 request value, 6 fee: 70 change.
	require.Equal(t, 1, len(body.Outputs))
	assert.Equal(t, uint64(70), body.Outputs[0].Value)
	assert.DeepEqual(t, dro, body.DROutput)
}

func TestGetTotalBalance(t *testing.T) {
	_, pool := fundedPools(t, 10, 20)
	other := types.PublicKeyHashFromBytes([]byte{0x03})
	pool.Insert(types.OutputPointer{TransactionID: types.Hash{0x09}}, types.ValueTransferOutput{PKH: other, Value: 7}, 1)

	assert.Equal(t, uint64(30), GetTotalBalance(pool, ownPKH()))
	assert.Equal(t, uint64(7), GetTotalBalance(pool, other))
}

func TestGetUtxoInfoCollateralFlag(t *testing.T) {
	own, pool := fundedPools(t, 2000, 500)

	info := GetUtxoInfo(nil, own, pool, 1000, 1)
	require.Equal(t, 2, len(info.Utxos))
	assert.Equal(t, uint64(1000), info.CollateralMinimum)

	// Only the first output is both big enough and old enough.
	for _, u := range info.Utxos {
		if u.Output.Value == 2000 {
			assert.Equal(t, true, u.ReadyForCollateral)
		} else {
			assert.Equal(t, false, u.ReadyForCollateral)
		}
	}
}

func TestSignTransaction(t *testing.T) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	require.NoError(t, err)
	signer := NewSecp256k1Signer(key)

	digest := types.CanonicalHash("payload")
	sigs, err := SignTransaction(context.Background(), signer, digest, 3)
	require.NoError(t, err)
	require.Equal(t, 3, len(sigs))
	for _, sig := range sigs {
		assert.Equal(t, signer.PublicKeyHash(), sig.PublicKeyHash())
		assert.NotEqual(t, 0, len(sig.Signature))
	}
}
