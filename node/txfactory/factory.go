// Package txfactory builds and funds the transactions the node originates:
// value transfers and data requests. It owns coin selection over the node's
// unspent outputs and the balance and UTXO queries the wallet surface needs.
package txfactory

import (
	"fmt"
	"sort"

	"github.com/oraculum-network/oraculum/types"
)

// UtxoSelectionStrategy decides the order in which the node's unspent
// outputs are consumed.
type UtxoSelectionStrategy int

// The supported strategies.
const (
	// StrategyRandom consumes outputs in key order, which is effectively
	// random with respect to value.
	StrategyRandom UtxoSelectionStrategy = iota
	// StrategyBigFirst consumes the most valuable outputs first.
	StrategyBigFirst
	// StrategySmallFirst consumes the least valuable outputs first,
	// consolidating dust.
	StrategySmallFirst
)

// InsufficientFundsError reports a funding attempt that the node's balance
// cannot cover.
type InsufficientFundsError struct {
	Available uint64
	Required  uint64
}

// Error implements error.
func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("cannot build transaction: transaction value is greater than available balance (available: %d, required: %d)", e.Available, e.Required)
}

// BuildVTT funds a value transfer transaction paying the given outputs plus
// the fee, spending the node's own unspent outputs. Selected outputs are
// reserved in the own-UTXO index until the pending timeout elapses.
func BuildVTT(
	outputs []types.ValueTransferOutput,
	fee uint64,
	ownUtxos *types.OwnUnspentOutputsPool,
	ownPKH types.PublicKeyHash,
	pool *types.UnspentOutputsPool,
	timestamp uint64,
	pendingTimeout uint64,
	strategy UtxoSelectionStrategy,
) (*types.VTTransactionBody, error) {
	var total uint64
	for _, vto := range outputs {
		total += vto.Value
	}
	inputs, change, err := selectInputs(total+fee, ownUtxos, pool, timestamp, pendingTimeout, strategy)
	if err != nil {
		return nil, err
	}
	body := &types.VTTransactionBody{
		Inputs:  inputs,
		Outputs: outputs,
	}
	if change > 0 {
		body.Outputs = append(body.Outputs, types.ValueTransferOutput{PKH: ownPKH, Value: change})
	}
	reserveInputs(inputs, ownUtxos, timestamp)
	return body, nil
}

// BuildDRT funds a data request transaction: the request's total value plus
// the fee, with change back to the node.
func BuildDRT(
	dro types.DataRequestOutput,
	fee uint64,
	ownUtxos *types.OwnUnspentOutputsPool,
	ownPKH types.PublicKeyHash,
	pool *types.UnspentOutputsPool,
	timestamp uint64,
	pendingTimeout uint64,
) (*types.DRTransactionBody, error) {
	inputs, change, err := selectInputs(dro.TotalValue()+fee, ownUtxos, pool, timestamp, pendingTimeout, StrategyRandom)
	if err != nil {
		return nil, err
	}
	body := &types.DRTransactionBody{
		Inputs:   inputs,
		DROutput: dro,
	}
	if change > 0 {
		body.Outputs = append(body.Outputs, types.ValueTransferOutput{PKH: ownPKH, Value: change})
	}
	reserveInputs(inputs, ownUtxos, timestamp)
	return body, nil
}

// selectInputs accumulates spendable own outputs until the target amount is
// covered, returning the inputs and the change.
func selectInputs(
	target uint64,
	ownUtxos *types.OwnUnspentOutputsPool,
	pool *types.UnspentOutputsPool,
	timestamp uint64,
	pendingTimeout uint64,
	strategy UtxoSelectionStrategy,
) ([]types.Input, uint64, error) {
	type candidate struct {
		pointer types.OutputPointer
		value   uint64
	}
	var candidates []candidate
	var available uint64
	for _, key := range sortedOwnKeys(ownUtxos) {
		pointer, err := types.OutputPointerFromString(key)
		if err != nil {
			continue
		}
		entry, ok := pool.Get(pointer)
		if !ok {
			continue
		}
		// Skip outputs reserved by a pending transaction that has not
		// timed out yet, and time-locked outputs.
		usedAt := ownUtxos.UsedAt(pointer)
		if usedAt > 0 && timestamp-usedAt < pendingTimeout {
			continue
		}
		if entry.Output.TimeLock > timestamp {
			continue
		}
		candidates = append(candidates, candidate{pointer: pointer, value: entry.Output.Value})
		available += entry.Output.Value
	}
	if available < target {
		return nil, 0, InsufficientFundsError{Available: available, Required: target}
	}

	switch strategy {
	case StrategyBigFirst:
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].value > candidates[j].value })
	case StrategySmallFirst:
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].value < candidates[j].value })
	}

	var inputs []types.Input
	var gathered uint64
	for _, c := range candidates {
		inputs = append(inputs, types.Input{OutputPointer: c.pointer})
		gathered += c.value
		if gathered >= target {
			break
		}
	}
	return inputs, gathered - target, nil
}

func reserveInputs(inputs []types.Input, ownUtxos *types.OwnUnspentOutputsPool, timestamp uint64) {
	for _, input := range inputs {
		ownUtxos.MarkUsed(input.OutputPointer, timestamp)
	}
}

func sortedOwnKeys(ownUtxos *types.OwnUnspentOutputsPool) []string {
	keys := make([]string, 0, len(ownUtxos.Map))
	for k := range ownUtxos.Map {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetTotalBalance sums the value of every unspent output owned by the given
// identity.
func GetTotalBalance(pool *types.UnspentOutputsPool, pkh types.PublicKeyHash) uint64 {
	var total uint64
	for _, entry := range pool.Map {
		if entry.Output.PKH == pkh {
			total += entry.Output.Value
		}
	}
	return total
}

// GetUtxoInfo lists the unspent outputs of an identity. A nil pkh means the
// node itself, which is answered from the own-UTXO index. Outputs old enough
// and big enough to collateralize a commitment are flagged.
func GetUtxoInfo(
	pkh *types.PublicKeyHash,
	ownUtxos *types.OwnUnspentOutputsPool,
	pool *types.UnspentOutputsPool,
	collateralMinimum uint64,
	blockNumberLimit uint32,
) types.UtxoInfo {
	info := types.UtxoInfo{CollateralMinimum: collateralMinimum}
	appendEntry := func(key string) {
		pointer, err := types.OutputPointerFromString(key)
		if err != nil {
			return
		}
		entry, ok := pool.Get(pointer)
		if !ok {
			return
		}
		info.Utxos = append(info.Utxos, types.UtxoMetadata{
			OutputPointer:      pointer,
			Output:             entry.Output,
			BlockNumber:        entry.BlockNumber,
			ReadyForCollateral: entry.Output.Value >= collateralMinimum && entry.BlockNumber <= blockNumberLimit,
		})
	}
	if pkh == nil {
		for _, key := range sortedOwnKeys(ownUtxos) {
			appendEntry(key)
		}
		return info
	}
	for _, key := range pool.SortedKeys() {
		if entry, ok := pool.Map[key]; ok && entry.Output.PKH == *pkh {
			appendEntry(key)
		}
	}
	return info
}
