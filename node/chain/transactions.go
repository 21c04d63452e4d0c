package chain

import (
	"github.com/pkg/errors"

	"github.com/oraculum-network/oraculum/node/sessions"
	"github.com/oraculum-network/oraculum/node/txfactory"
	"github.com/oraculum-network/oraculum/shared/roughtime"
	"github.com/oraculum-network/oraculum/types"
)

// AddTransaction admits a gossiped transaction into the mempool.
func (s *Service) AddTransaction(tx types.Transaction) error {
	var err error
	s.call(func() { err = s.handleAddTransaction(tx) })
	return err
}

// handleAddTransaction runs on the run loop.
func (s *Service) handleAddTransaction(tx types.Transaction) error {
	if s.smState != Synced && s.smState != AlmostSynced {
		return NotSyncedError{CurrentState: s.smState}
	}
	if err := s.validateTransactionInputs(tx); err != nil {
		return err
	}
	if err := s.mempool.Insert(tx); err != nil {
		return err
	}
	s.cfg.Gateway.Broadcast(sessions.SendTransaction{Transaction: tx}, false)
	return nil
}

// validateTransactionInputs checks spendability and value balance. Deeper
// validation (signatures, eligibility proofs) belongs to the validation
// collaborator.
func (s *Service) validateTransactionInputs(tx types.Transaction) error {
	var inputs []types.Input
	var outputValue uint64
	switch t := tx.(type) {
	case *types.VTTransaction:
		inputs = t.Body.Inputs
		for _, vto := range t.Body.Outputs {
			outputValue += vto.Value
		}
	case *types.DRTransaction:
		inputs = t.Body.Inputs
		for _, vto := range t.Body.Outputs {
			outputValue += vto.Value
		}
		outputValue += t.Body.DROutput.TotalValue()
	default:
		// Commits and reveals carry no value; they are bound to a data
		// request instead.
		return nil
	}
	var inputValue uint64
	for _, input := range inputs {
		entry, ok := s.chainState.UnspentOutputsPool.Get(input.OutputPointer)
		if !ok {
			return errors.Errorf("input %s is not in the UTXO pool", input.OutputPointer)
		}
		inputValue += entry.Output.Value
	}
	if inputValue < outputValue {
		return errors.Errorf("transaction spends more than it consumes: %d < %d", inputValue, outputValue)
	}
	return nil
}

// BuildVtt builds, signs and admits a value transfer transaction paying the
// given outputs. Returns the transaction hash.
func (s *Service) BuildVtt(outputs []types.ValueTransferOutput, fee uint64, strategy txfactory.UtxoSelectionStrategy) (types.Hash, error) {
	var body *types.VTTransactionBody
	var err error
	s.call(func() {
		if s.smState != Synced {
			err = NotSyncedError{CurrentState: s.smState}
			return
		}
		if s.signer == nil {
			err = ErrChainNotReady
			return
		}
		body, err = txfactory.BuildVTT(
			outputs,
			fee,
			&s.chainState.OwnUtxos,
			s.signer.PublicKeyHash(),
			&s.chainState.UnspentOutputsPool,
			uint64(roughtime.Now().Unix()),
			uint64(s.cfg.TxPendingTimeout.Seconds()),
			strategy,
		)
	})
	if err != nil {
		log.WithError(err).Error("Error when building value transfer transaction")
		return types.Hash{}, err
	}

	// Signing happens off the run loop: it may hop to a remote key manager.
	signatures, err := txfactory.SignTransaction(s.ctx, s.signer, types.CanonicalHash(body), len(body.Inputs))
	if err != nil {
		log.WithError(err).Error("Failed to sign value transfer transaction")
		return types.Hash{}, err
	}
	tx := &types.VTTransaction{Body: *body, Signatures: signatures}
	if err := s.AddTransaction(tx); err != nil {
		return types.Hash{}, err
	}
	return tx.Hash(), nil
}

// BuildDrt builds, signs and admits a data request transaction.
func (s *Service) BuildDrt(dro types.DataRequestOutput, fee uint64) (types.Hash, error) {
	if err := dro.DataRequest.Validate(); err != nil {
		return types.Hash{}, err
	}
	var body *types.DRTransactionBody
	var err error
	s.call(func() {
		if s.smState != Synced {
			err = NotSyncedError{CurrentState: s.smState}
			return
		}
		if s.signer == nil {
			err = ErrChainNotReady
			return
		}
		body, err = txfactory.BuildDRT(
			dro,
			fee,
			&s.chainState.OwnUtxos,
			s.signer.PublicKeyHash(),
			&s.chainState.UnspentOutputsPool,
			uint64(roughtime.Now().Unix()),
			uint64(s.cfg.TxPendingTimeout.Seconds()),
		)
	})
	if err != nil {
		log.WithError(err).Error("Error when building data request transaction")
		return types.Hash{}, err
	}

	signatures, err := txfactory.SignTransaction(s.ctx, s.signer, types.CanonicalHash(body), len(body.Inputs))
	if err != nil {
		log.WithError(err).Error("Failed to sign data request transaction")
		return types.Hash{}, err
	}
	tx := &types.DRTransaction{Body: *body, Signatures: signatures}
	if err := s.AddTransaction(tx); err != nil {
		return types.Hash{}, err
	}
	return tx.Hash(), nil
}

// AddCommitReveal holds the reveal under the data request's waiting slot and
// admits the commit transaction.
func (s *Service) AddCommitReveal(commit *types.CommitTransaction, reveal *types.RevealTransaction) error {
	var err error
	s.call(func() {
		s.chainState.DataRequestPool.InsertReveal(commit.Body.DRPointer, reveal)
		err = s.handleAddTransaction(commit)
	})
	if err != nil {
		log.WithError(err).Warn("Failed to add commit transaction")
	}
	return err
}
