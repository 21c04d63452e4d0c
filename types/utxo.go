package types

import (
	"sort"
)

// UtxoEntry is one unspent output plus the block number at which it was
// created. The block number drives the collateral age check.
type UtxoEntry struct {
	Output      ValueTransferOutput `json:"output"`
	BlockNumber uint32              `json:"blockNumber"`
}

// UnspentOutputsPool maps output pointers to the outputs that have not been
// spent yet. Keys are the String rendering of the pointer so that the pool
// survives a deep copy and a round trip through the storage codec.
type UnspentOutputsPool struct {
	Map map[string]UtxoEntry `json:"map"`
}

// NewUnspentOutputsPool returns an empty pool.
func NewUnspentOutputsPool() UnspentOutputsPool {
	return UnspentOutputsPool{Map: make(map[string]UtxoEntry)}
}

// Get returns the output referenced by the pointer, if present.
func (p *UnspentOutputsPool) Get(o OutputPointer) (UtxoEntry, bool) {
	entry, ok := p.Map[o.String()]
	return entry, ok
}

// Contains reports whether the pointer references an unspent output.
func (p *UnspentOutputsPool) Contains(o OutputPointer) bool {
	_, ok := p.Map[o.String()]
	return ok
}

// Insert adds an output to the pool.
func (p *UnspentOutputsPool) Insert(o OutputPointer, vto ValueTransferOutput, blockNumber uint32) {
	if p.Map == nil {
		p.Map = make(map[string]UtxoEntry)
	}
	p.Map[o.String()] = UtxoEntry{Output: vto, BlockNumber: blockNumber}
}

// Remove deletes an output from the pool.
func (p *UnspentOutputsPool) Remove(o OutputPointer) {
	delete(p.Map, o.String())
}

// Len returns the number of unspent outputs.
func (p *UnspentOutputsPool) Len() int {
	return len(p.Map)
}

// SortedKeys returns the pointer keys in lexicographic order. Iterating in a
// stable order keeps coin selection deterministic.
func (p *UnspentOutputsPool) SortedKeys() []string {
	keys := make([]string, 0, len(p.Map))
	for k := range p.Map {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OwnUnspentOutputsPool indexes the outputs spendable by the node's own key.
// The value is the unix timestamp at which the output was reserved by a
// pending transaction, or zero when the output is free.
type OwnUnspentOutputsPool struct {
	Map map[string]uint64 `json:"map"`
}

// NewOwnUnspentOutputsPool returns an empty index.
func NewOwnUnspentOutputsPool() OwnUnspentOutputsPool {
	return OwnUnspentOutputsPool{Map: make(map[string]uint64)}
}

// Insert tracks an output as our own.
func (p *OwnUnspentOutputsPool) Insert(o OutputPointer) {
	if p.Map == nil {
		p.Map = make(map[string]uint64)
	}
	p.Map[o.String()] = 0
}

// Remove stops tracking an output.
func (p *OwnUnspentOutputsPool) Remove(o OutputPointer) {
	delete(p.Map, o.String())
}

// Contains reports whether the output belongs to the node.
func (p *OwnUnspentOutputsPool) Contains(o OutputPointer) bool {
	_, ok := p.Map[o.String()]
	return ok
}

// UsedAt returns the timestamp at which a pending transaction reserved the
// output, or zero.
func (p *OwnUnspentOutputsPool) UsedAt(o OutputPointer) uint64 {
	return p.Map[o.String()]
}

// MarkUsed reserves the output for a pending transaction.
func (p *OwnUnspentOutputsPool) MarkUsed(o OutputPointer, timestamp uint64) {
	if p.Map == nil {
		p.Map = make(map[string]uint64)
	}
	p.Map[o.String()] = timestamp
}

// UtxoDiff is the set of UTXO pool mutations produced by validating a block
// or a candidate. It is applied atomically on consolidation.
type UtxoDiff struct {
	InsertedUtxos map[string]UtxoEntry
	RemovedUtxos  []string
}

// NewUtxoDiff returns an empty diff.
func NewUtxoDiff() *UtxoDiff {
	return &UtxoDiff{InsertedUtxos: make(map[string]UtxoEntry)}
}

// Insert records an output creation.
func (d *UtxoDiff) Insert(o OutputPointer, vto ValueTransferOutput, blockNumber uint32) {
	d.InsertedUtxos[o.String()] = UtxoEntry{Output: vto, BlockNumber: blockNumber}
}

// Remove records an output spend.
func (d *UtxoDiff) Remove(o OutputPointer) {
	d.RemovedUtxos = append(d.RemovedUtxos, o.String())
}

// ApplyTo mutates the pool with the recorded insertions and removals.
func (d *UtxoDiff) ApplyTo(pool *UnspentOutputsPool) {
	if pool.Map == nil {
		pool.Map = make(map[string]UtxoEntry)
	}
	for k, entry := range d.InsertedUtxos {
		pool.Map[k] = entry
	}
	for _, k := range d.RemovedUtxos {
		delete(pool.Map, k)
	}
}

// UtxoMetadata describes one unspent output for wallet queries.
type UtxoMetadata struct {
	OutputPointer      OutputPointer       `json:"outputPointer"`
	Output             ValueTransferOutput `json:"output"`
	BlockNumber        uint32              `json:"blockNumber"`
	ReadyForCollateral bool                `json:"readyForCollateral"`
}

// UtxoInfo is the answer to a GetUtxoInfo query.
type UtxoInfo struct {
	Utxos             []UtxoMetadata `json:"utxos"`
	CollateralMinimum uint64         `json:"collateralMin"`
}
