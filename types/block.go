package types

// BlockMerkleRoots commit to each transaction section of a block.
type BlockMerkleRoots struct {
	MintHash             Hash `json:"mintHash"`
	VTHashMerkleRoot     Hash `json:"vtHashMerkleRoot"`
	DRHashMerkleRoot     Hash `json:"drHashMerkleRoot"`
	CommitHashMerkleRoot Hash `json:"commitHashMerkleRoot"`
	RevealHashMerkleRoot Hash `json:"revealHashMerkleRoot"`
	TallyHashMerkleRoot  Hash `json:"tallyHashMerkleRoot"`
}

// BlockHeader carries the beacon the block extends, the commitment to its
// transactions and the eligibility proof of its miner.
type BlockHeader struct {
	Beacon      CheckpointBeacon `json:"beacon"`
	MerkleRoots BlockMerkleRoots `json:"merkleRoots"`
	Proof       []byte           `json:"proof"`
}

// BlockTransactions groups the transactions of a block by kind.
type BlockTransactions struct {
	Mint              MintTransaction      `json:"mint"`
	ValueTransferTxns []*VTTransaction     `json:"valueTransferTxns"`
	DataRequestTxns   []*DRTransaction     `json:"dataRequestTxns"`
	CommitTxns        []*CommitTransaction `json:"commitTxns"`
	RevealTxns        []*RevealTransaction `json:"revealTxns"`
	TallyTxns         []*TallyTransaction  `json:"tallyTxns"`
}

// Block is one link of the chain.
type Block struct {
	BlockHeader BlockHeader       `json:"blockHeader"`
	BlockSig    KeyedSignature    `json:"blockSig"`
	Txns        BlockTransactions `json:"txns"`
}

// Hash returns the digest of the block header, which commits to the whole
// block through the merkle roots.
func (b *Block) Hash() Hash {
	return CanonicalHash(&b.BlockHeader)
}

// Epoch returns the epoch the block was mined for.
func (b *Block) Epoch() Epoch {
	return b.BlockHeader.Beacon.Checkpoint
}
