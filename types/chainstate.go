package types

import (
	"sort"

	"github.com/mohae/deepcopy"
)

// ConsensusConstants are the network-wide parameters every node must agree
// on. They are part of the persisted chain info and never change after
// bootstrap.
type ConsensusConstants struct {
	CheckpointZeroTimestamp int64  `json:"checkpointZeroTimestamp"`
	CheckpointsPeriod       uint16 `json:"checkpointsPeriod"`
	BootstrapHash           Hash   `json:"bootstrapHash"`
	GenesisHash             Hash   `json:"genesisHash"`
	ActivityPeriod          uint32 `json:"activityPeriod"`
	SuperblockPeriod        uint16 `json:"superblockPeriod"`
	CollateralMinimum       uint64 `json:"collateralMinimum"`
	CollateralAge           uint32 `json:"collateralAge"`
	MiningBackoffEpochs     uint32 `json:"miningBackoffEpochs"`
	ReputationExpireAlpha   uint32 `json:"reputationExpireAlphaDiff"`
}

// MagicNumber is the handshake framing tag: the first two bytes of the
// sha256 digest of the canonical encoding of the consensus constants. Nodes
// configured with different constants cannot complete a handshake.
func (c *ConsensusConstants) MagicNumber() uint16 {
	digest := CanonicalHash(c)
	return uint16(digest[0])<<8 | uint16(digest[1])
}

// ChainInfo summarizes the identity and the tips of the chain.
type ChainInfo struct {
	Environment                 string             `json:"environment"`
	ConsensusConstants          ConsensusConstants `json:"consensusConstants"`
	HighestBlockCheckpoint      CheckpointBeacon   `json:"highestBlockCheckpoint"`
	HighestSuperblockCheckpoint CheckpointBeacon   `json:"highestSuperblockCheckpoint"`
}

// NodeStats are the node's own production counters, persisted with the chain
// state snapshot.
type NodeStats struct {
	BlockMinedCount      uint32 `json:"blockMinedCount"`
	BlockProposedCount   uint32 `json:"blockProposedCount"`
	CommitsCount         uint32 `json:"commitsCount"`
	CommitsProposedCount uint32 `json:"commitsProposedCount"`
	LastBlockMined       Epoch  `json:"lastBlockMined"`
}

// BlockChainEntry is one (epoch, hash) pair of the block index.
type BlockChainEntry struct {
	Epoch Epoch `json:"epoch"`
	Hash  Hash  `json:"hash"`
}

// BlockChain is the epoch-ordered index of consolidated block hashes.
type BlockChain struct {
	Entries []BlockChainEntry `json:"entries"`
}

// Insert adds an entry keeping the index ordered by epoch.
func (b *BlockChain) Insert(epoch Epoch, hash Hash) {
	i := sort.Search(len(b.Entries), func(i int) bool {
		return b.Entries[i].Epoch >= epoch
	})
	if i < len(b.Entries) && b.Entries[i].Epoch == epoch {
		b.Entries[i].Hash = hash
		return
	}
	b.Entries = append(b.Entries, BlockChainEntry{})
	copy(b.Entries[i+1:], b.Entries[i:])
	b.Entries[i] = BlockChainEntry{Epoch: epoch, Hash: hash}
}

// Range returns the entries with start <= epoch <= end.
func (b *BlockChain) Range(start, end Epoch) []BlockChainEntry {
	lo := sort.Search(len(b.Entries), func(i int) bool {
		return b.Entries[i].Epoch >= start
	})
	hi := sort.Search(len(b.Entries), func(i int) bool {
		return b.Entries[i].Epoch > end
	})
	out := make([]BlockChainEntry, hi-lo)
	copy(out, b.Entries[lo:hi])
	return out
}

// Max returns the highest entry of the index, if any.
func (b *BlockChain) Max() (BlockChainEntry, bool) {
	if len(b.Entries) == 0 {
		return BlockChainEntry{}, false
	}
	return b.Entries[len(b.Entries)-1], true
}

// Len returns the number of indexed blocks.
func (b *BlockChain) Len() int {
	return len(b.Entries)
}

// ChainState is the complete in-memory state of the chain. It is owned by
// the chain manager, mutated only on its run loop, and snapshotted to
// storage as one unit.
type ChainState struct {
	ChainInfo          *ChainInfo            `json:"chainInfo"`
	UnspentOutputsPool UnspentOutputsPool    `json:"unspentOutputsPool"`
	OwnUtxos           OwnUnspentOutputsPool `json:"ownUtxos"`
	BlockChain         BlockChain            `json:"blockChain"`
	DataRequestPool    *DataRequestPool      `json:"dataRequestPool"`
	ReputationEngine   *ReputationEngine     `json:"reputationEngine"`
	NodeStats          NodeStats             `json:"nodeStats"`
	SuperblockState    *SuperBlockState      `json:"superblockState"`
}

// NewChainState builds the bootstrap state for the given chain info.
func NewChainState(info *ChainInfo) *ChainState {
	return &ChainState{
		ChainInfo:          info,
		UnspentOutputsPool: NewUnspentOutputsPool(),
		OwnUtxos:           NewOwnUnspentOutputsPool(),
		DataRequestPool:    NewDataRequestPool(),
		ReputationEngine:   NewReputationEngine(info.ConsensusConstants.ActivityPeriod),
		SuperblockState:    NewSuperBlockState(info.ConsensusConstants.BootstrapHash),
	}
}

// GetChainBeacon returns the beacon of our chain tip.
func (c *ChainState) GetChainBeacon() CheckpointBeacon {
	return c.ChainInfo.HighestBlockCheckpoint
}

// GetSuperblockBeacon returns the beacon of our superblock tip.
func (c *ChainState) GetSuperblockBeacon() CheckpointBeacon {
	return c.SuperblockState.GetBeacon()
}

// BlockNumber is the count of consolidated blocks, used as the collateral
// age measure.
func (c *ChainState) BlockNumber() uint32 {
	return uint32(c.BlockChain.Len())
}

// Clone deep-copies the whole state. Used to keep the last persisted
// snapshot available for rollback.
func (c *ChainState) Clone() *ChainState {
	return deepcopy.Copy(c).(*ChainState)
}
