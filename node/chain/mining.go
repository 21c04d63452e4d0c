package chain

import (
	"context"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec"

	"github.com/oraculum-network/oraculum/node/sessions"
	"github.com/oraculum-network/oraculum/shared/bytesutil"
	"github.com/oraculum-network/oraculum/shared/hashutil"
	"github.com/oraculum-network/oraculum/types"
)

// initialBlockReward and the halving period fix the emission schedule.
const (
	initialBlockReward = uint64(250) * 1_000_000_000
	halvingPeriod      = 1_750_000
)

// DataRequestResolver is the RAD engine surface mining needs: given a
// request description it produces the bytes this node would reveal.
type DataRequestResolver interface {
	Resolve(ctx context.Context, request types.RADRequest) ([]byte, error)
}

// eligibilityProver derives eligibility proofs from the node's secret key.
// The proof is a deterministic signature over the epoch and the chain tip,
// so every node can recompute and verify the proof hash.
type eligibilityProver struct {
	key *btcec.PrivateKey
}

func newEligibilityProver(key *btcec.PrivateKey) *eligibilityProver {
	return &eligibilityProver{key: key}
}

// prove signs the message and returns the proof and its hash.
func (p *eligibilityProver) prove(msg []byte) ([]byte, types.Hash, error) {
	digest := hashutil.Hash(msg)
	sig, err := p.key.Sign(digest[:])
	if err != nil {
		return nil, types.Hash{}, err
	}
	proof := sig.Serialize()
	return proof, types.Hash(hashutil.Hash(proof)), nil
}

// eligibilityMessage binds a proof to the current epoch and tip.
func eligibilityMessage(epoch types.Epoch, tip types.Hash, payload []byte) []byte {
	msg := make([]byte, 0, 4+len(tip)+len(payload))
	msg = append(msg, bytesutil.Uint32ToBytesBigEndian(epoch)...)
	msg = append(msg, tip[:]...)
	msg = append(msg, payload...)
	return msg
}

// proofMeetsTarget compares the first four bytes of the proof hash against a
// target scaled by the number of eligible slots over the population size.
func proofMeetsTarget(proofHash types.Hash, slots, population uint64) bool {
	if population == 0 {
		return true
	}
	if slots == 0 {
		return false
	}
	if slots > population {
		slots = population
	}
	target := uint32((uint64(^uint32(0)) * slots) / population)
	return binary.BigEndian.Uint32(proofHash[:4]) <= target
}

// blockReward follows the halving schedule.
func blockReward(epoch types.Epoch) uint64 {
	halvings := epoch / halvingPeriod
	if halvings >= 64 {
		return 0
	}
	return initialBlockReward >> halvings
}

// TryMineBlock attempts to produce a block candidate for the current epoch.
// The session layer triggers it on the peers beacon timeout, so that all the
// candidates of the epoch are on the table before ours joins them.
func (s *Service) TryMineBlock() {
	s.do(func() { s.tryMineBlock() })
}

// tryMineBlock runs on the run loop.
func (s *Service) tryMineBlock() {
	if s.smState != Synced {
		log.WithField("state", s.smState).Debug("Not mining a block while not synced")
		return
	}
	if !s.chainReady() || s.currentEpoch == nil {
		log.Error(ErrChainNotReady.Error())
		return
	}
	epoch := *s.currentEpoch
	tip := s.getChainBeacon()

	proof, proofHash, err := s.vrfCtx.prove(eligibilityMessage(epoch, tip.HashPrevBlock, nil))
	if err != nil {
		log.WithError(err).Error("Could not compute block eligibility proof")
		return
	}
	rep := s.chainState.ReputationEngine
	ownRep := uint64(rep.TRS.Get(s.signer.PublicKeyHash())) + 1
	if !proofMeetsTarget(proofHash, ownRep, rep.TotalActiveReputation()) {
		log.WithField("epoch", epoch).Debug("Not eligible to mine a block this epoch")
		return
	}

	block, diff, err := s.buildBlock(epoch, tip)
	if err != nil {
		log.WithError(err).Error("Could not build block candidate")
		return
	}
	block.BlockHeader.Proof = proof
	digest := block.Hash()
	signature, err := s.signer.Sign(s.ctx, digest)
	if err != nil {
		log.WithError(err).Error("Could not sign block candidate")
		return
	}
	block.BlockSig = signature

	s.chainState.NodeStats.BlockProposedCount++
	log.WithField("epoch", epoch).WithField("block", block.Hash()).Info("Proposed block candidate")
	s.cfg.Gateway.Broadcast(sessions.SendBlock{Block: block}, false)

	// Our own candidate competes on equal footing. The diff was computed
	// against the same tip, so the hash changed by the signature does not
	// invalidate it.
	candidate := &BlockCandidate{
		Block:      block,
		UtxoDiff:   diff,
		Reputation: s.chainState.ReputationEngine.TRS.Get(s.signer.PublicKeyHash()),
		VrfProof:   types.Hash(hashutil.Hash(proof)),
	}
	if s.betterCandidate(candidate) {
		s.bestCandidate = candidate
	}
}

// buildBlock assembles a block from the mempool on top of the given tip.
func (s *Service) buildBlock(epoch types.Epoch, tip types.CheckpointBeacon) (*types.Block, *types.UtxoDiff, error) {
	block := &types.Block{
		BlockHeader: types.BlockHeader{
			Beacon: types.CheckpointBeacon{
				Checkpoint:    epoch,
				HashPrevBlock: tip.HashPrevBlock,
			},
		},
		Txns: types.BlockTransactions{
			Mint: types.MintTransaction{
				Epoch: epoch,
				Output: types.ValueTransferOutput{
					PKH:   s.signer.PublicKeyHash(),
					Value: blockReward(epoch),
				},
			},
		},
	}

	spendable := func(inputs []types.Input, spent map[string]bool) bool {
		for _, input := range inputs {
			key := input.OutputPointer.String()
			if spent[key] || !s.chainState.UnspentOutputsPool.Contains(input.OutputPointer) {
				return false
			}
		}
		for _, input := range inputs {
			spent[input.OutputPointer.String()] = true
		}
		return true
	}
	spent := make(map[string]bool)
	for _, hash := range s.mempool.VTHashes() {
		if tx, ok := s.mempool.Get(hash); ok {
			vt := tx.(*types.VTTransaction)
			if spendable(vt.Body.Inputs, spent) {
				block.Txns.ValueTransferTxns = append(block.Txns.ValueTransferTxns, vt)
			}
		}
	}
	for _, tx := range s.mempool.DataRequests() {
		if spendable(tx.Body.Inputs, spent) {
			block.Txns.DataRequestTxns = append(block.Txns.DataRequestTxns, tx)
		}
	}

	block.BlockHeader.MerkleRoots = merkleRootsOf(&block.Txns)

	diff, err := s.computeUtxoDiff(block)
	if err != nil {
		return nil, nil, err
	}
	return block, diff, nil
}

// merkleRootsOf commits to every transaction section.
func merkleRootsOf(txns *types.BlockTransactions) types.BlockMerkleRoots {
	leaves := func(hashes []types.Hash) [][32]byte {
		out := make([][32]byte, len(hashes))
		for i, h := range hashes {
			out[i] = h
		}
		return out
	}
	var vt, dr, commit, reveal, tally []types.Hash
	for _, tx := range txns.ValueTransferTxns {
		vt = append(vt, tx.Hash())
	}
	for _, tx := range txns.DataRequestTxns {
		dr = append(dr, tx.Hash())
	}
	for _, tx := range txns.CommitTxns {
		commit = append(commit, tx.Hash())
	}
	for _, tx := range txns.RevealTxns {
		reveal = append(reveal, tx.Hash())
	}
	for _, tx := range txns.TallyTxns {
		tally = append(tally, tx.Hash())
	}
	return types.BlockMerkleRoots{
		MintHash:             txns.Mint.Hash(),
		VTHashMerkleRoot:     types.Hash(hashutil.MerkleRoot(leaves(vt))),
		DRHashMerkleRoot:     types.Hash(hashutil.MerkleRoot(leaves(dr))),
		CommitHashMerkleRoot: types.Hash(hashutil.MerkleRoot(leaves(commit))),
		RevealHashMerkleRoot: types.Hash(hashutil.MerkleRoot(leaves(reveal))),
		TallyHashMerkleRoot:  types.Hash(hashutil.MerkleRoot(leaves(tally))),
	}
}

// tryMineDataRequest resolves the pending data requests this node is
// eligible to witness and gossips the resulting commitments. Runs on the run
// loop, triggered every epoch tick while AlmostSynced or Synced.
func (s *Service) tryMineDataRequest() {
	if s.cfg.Resolver == nil || !s.chainReady() || s.currentEpoch == nil {
		return
	}
	epoch := *s.currentEpoch
	tip := s.getChainBeacon()
	rep := s.chainState.ReputationEngine

	for drPointer, state := range s.chainState.DataRequestPool.DataRequests {
		if state.Info.CurrentStage != types.StageCommit {
			continue
		}
		proof, proofHash, err := s.vrfCtx.prove(eligibilityMessage(epoch, tip.HashPrevBlock, drPointer[:]))
		if err != nil {
			log.WithError(err).Error("Could not compute data request eligibility proof")
			continue
		}
		population := uint64(rep.ARS.ActiveIdentitiesNumber())
		if !proofMeetsTarget(proofHash, uint64(state.DataRequestOutput.Witnesses), population) {
			continue
		}

		reveal, err := s.cfg.Resolver.Resolve(s.ctx, state.DataRequestOutput.DataRequest)
		if err != nil {
			log.WithError(err).WithField("drPointer", drPointer).
				Warn("Could not resolve data request")
			continue
		}

		revealTx := &types.RevealTransaction{
			Body: types.RevealTransactionBody{
				DRPointer: drPointer,
				Reveal:    reveal,
				PKH:       s.signer.PublicKeyHash(),
			},
		}
		commitTx := &types.CommitTransaction{
			Body: types.CommitTransactionBody{
				DRPointer:  drPointer,
				Commitment: revealTx.Hash(),
				Proof:      proof,
			},
		}
		signature, err := s.signer.Sign(s.ctx, commitTx.Hash())
		if err != nil {
			log.WithError(err).Error("Could not sign commit transaction")
			continue
		}
		commitTx.Signatures = append(commitTx.Signatures, signature)

		// The reveal waits locally until the commit consolidates.
		s.chainState.DataRequestPool.InsertReveal(drPointer, revealTx)
		if err := s.mempool.Insert(commitTx); err != nil {
			log.WithError(err).Debug("Could not admit own commit transaction")
			continue
		}
		s.chainState.NodeStats.CommitsProposedCount++
		s.cfg.Gateway.Broadcast(sessions.SendTransaction{Transaction: commitTx}, false)
	}
}
