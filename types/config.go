package types

// Network presets. The bootstrap hash seeds the chain before the genesis
// block exists; the genesis hash pins the only block accepted while waiting
// for consensus on an empty chain.

var mainnetBootstrapHash = mustHash("30af1430a2bbcc7b4c4205c853005e5a8d19ebff6d0a1a0eb5ceb6cb1dd2d74c")
var mainnetGenesisHash = mustHash("e94e9d7e0a995b2d0e50fbdcf476bfca0e713f04ea6404f1d13cbcd151c54b4b")

var testnetBootstrapHash = mustHash("8e8a23a9c573bcdd929e8ca8ca7e0b1b43e0ec1ae42d46c8b0e8a394fbbbf26f")
var testnetGenesisHash = mustHash("57670a3fbe4b25095c1acbd4c70f16faf4d71d2ae934418e8bd54d1891f9e4c1")

// MainnetConsensusConstants returns the production network parameters.
func MainnetConsensusConstants() ConsensusConstants {
	return ConsensusConstants{
		CheckpointZeroTimestamp: 1602666000,
		CheckpointsPeriod:       45,
		BootstrapHash:           mainnetBootstrapHash,
		GenesisHash:             mainnetGenesisHash,
		ActivityPeriod:          2000,
		SuperblockPeriod:        10,
		CollateralMinimum:       1_000_000_000,
		CollateralAge:           1000,
		MiningBackoffEpochs:     2,
		ReputationExpireAlpha:   20000,
	}
}

// TestnetConsensusConstants returns the public testnet parameters: a faster
// epoch, a shorter activity window and a lower collateral bar.
func TestnetConsensusConstants() ConsensusConstants {
	return ConsensusConstants{
		CheckpointZeroTimestamp: 1589321400,
		CheckpointsPeriod:       30,
		BootstrapHash:           testnetBootstrapHash,
		GenesisHash:             testnetGenesisHash,
		ActivityPeriod:          1000,
		SuperblockPeriod:        10,
		CollateralMinimum:       500_000_000,
		CollateralAge:           500,
		MiningBackoffEpochs:     2,
		ReputationExpireAlpha:   10000,
	}
}

func mustHash(s string) Hash {
	h, err := HashFromString(s)
	if err != nil {
		panic(err)
	}
	return h
}
