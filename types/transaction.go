package types

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/oraculum-network/oraculum/shared/hashutil"
)

// PublicKeyHash identifies a key holder: the first 20 bytes of the sha256
// digest of the compressed public key.
type PublicKeyHash [20]byte

// PublicKeyHashFromBytes hashes a serialized public key into its identity.
func PublicKeyHashFromBytes(publicKey []byte) PublicKeyHash {
	var pkh PublicKeyHash
	digest := hashutil.Hash(publicKey)
	copy(pkh[:], digest[:20])
	return pkh
}

// String returns the hex representation of the public key hash.
func (p PublicKeyHash) String() string {
	return hex.EncodeToString(p[:])
}

// MarshalText encodes the public key hash as a hex string. Text marshalling
// keeps identities usable both as JSON values and as JSON map keys.
func (p PublicKeyHash) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes the public key hash from a hex string.
func (p *PublicKeyHash) UnmarshalText(data []byte) error {
	b, err := hex.DecodeString(string(data))
	if err != nil {
		return err
	}
	if len(b) != len(p) {
		return errors.New("public key hash must be 40 hexadecimal characters")
	}
	copy(p[:], b)
	return nil
}

// OutputPointer references one output of one transaction.
type OutputPointer struct {
	TransactionID Hash   `json:"transactionId"`
	OutputIndex   uint32 `json:"outputIndex"`
}

// String renders the pointer as "txid:index".
func (o OutputPointer) String() string {
	return fmt.Sprintf("%s:%d", o.TransactionID, o.OutputIndex)
}

// OutputPointerFromString parses the "txid:index" rendering.
func OutputPointerFromString(s string) (OutputPointer, error) {
	var o OutputPointer
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return o, errors.Errorf("malformed output pointer: %q", s)
	}
	txID, err := HashFromString(parts[0])
	if err != nil {
		return o, err
	}
	idx, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return o, err
	}
	return OutputPointer{TransactionID: txID, OutputIndex: uint32(idx)}, nil
}

// Input spends one unspent output.
type Input struct {
	OutputPointer OutputPointer `json:"outputPointer"`
}

// ValueTransferOutput assigns a value to a public key hash, optionally
// time-locked until a unix timestamp.
type ValueTransferOutput struct {
	PKH      PublicKeyHash `json:"pkh"`
	Value    uint64        `json:"value"`
	TimeLock uint64        `json:"timeLock"`
}

// KeyedSignature is a signature bundled with the public key that produced it.
type KeyedSignature struct {
	Signature []byte `json:"signature"`
	PublicKey []byte `json:"publicKey"`
}

// PublicKeyHash returns the identity of the signing key.
func (k KeyedSignature) PublicKeyHash() PublicKeyHash {
	return PublicKeyHashFromBytes(k.PublicKey)
}

// RADSource is one retrieval source of a data request.
type RADSource struct {
	URL    string `json:"url"`
	Script []byte `json:"script"`
}

// RADRequest describes how a data request retrieves, aggregates and tallies
// its sources. Execution of the request is performed by the RAD engine, not
// by the chain manager.
type RADRequest struct {
	TimeLock  uint64      `json:"timeLock"`
	Retrieve  []RADSource `json:"retrieve"`
	Aggregate []byte      `json:"aggregate"`
	Tally     []byte      `json:"tally"`
}

// Validate performs the structural checks that admission into the mempool
// requires. Deep script validation belongs to the RAD engine.
func (r *RADRequest) Validate() error {
	if len(r.Retrieve) == 0 {
		return errors.New("data request has no retrieval sources")
	}
	for _, source := range r.Retrieve {
		if source.URL == "" {
			return errors.New("data request source has an empty url")
		}
	}
	return nil
}

// DataRequestOutput is the on-chain description of a data request.
type DataRequestOutput struct {
	DataRequest         RADRequest `json:"dataRequest"`
	WitnessReward       uint64     `json:"witnessReward"`
	Witnesses           uint16     `json:"witnesses"`
	CommitAndRevealFee  uint64     `json:"commitAndRevealFee"`
	MinConsensusPercent uint32     `json:"minConsensusPercentage"`
	CollateralAmount    uint64     `json:"collateral"`
}

// TotalValue is the total amount that inputs must cover, excluding the miner fee.
func (d *DataRequestOutput) TotalValue() uint64 {
	witnesses := uint64(d.Witnesses)
	return witnesses*d.WitnessReward + 2*witnesses*d.CommitAndRevealFee
}

// VTTransactionBody is the signable part of a value transfer transaction.
type VTTransactionBody struct {
	Inputs  []Input               `json:"inputs"`
	Outputs []ValueTransferOutput `json:"outputs"`
}

// VTTransaction transfers value between public key hashes.
type VTTransaction struct {
	Body       VTTransactionBody `json:"body"`
	Signatures []KeyedSignature  `json:"signatures"`
}

// Hash returns the digest of the transaction body.
func (t *VTTransaction) Hash() Hash { return CanonicalHash(&t.Body) }

// DRTransactionBody is the signable part of a data request transaction.
type DRTransactionBody struct {
	Inputs   []Input               `json:"inputs"`
	Outputs  []ValueTransferOutput `json:"outputs"`
	DROutput DataRequestOutput     `json:"drOutput"`
}

// DRTransaction posts a data request to the chain.
type DRTransaction struct {
	Body       DRTransactionBody `json:"body"`
	Signatures []KeyedSignature  `json:"signatures"`
}

// Hash returns the digest of the transaction body.
func (t *DRTransaction) Hash() Hash { return CanonicalHash(&t.Body) }

// CommitTransactionBody commits a witness to a data request resolution.
type CommitTransactionBody struct {
	DRPointer  Hash   `json:"drPointer"`
	Commitment Hash   `json:"commitment"`
	Proof      []byte `json:"proof"`
}

// CommitTransaction is a witness eligibility commitment.
type CommitTransaction struct {
	Body       CommitTransactionBody `json:"body"`
	Signatures []KeyedSignature      `json:"signatures"`
}

// Hash returns the digest of the transaction body.
func (t *CommitTransaction) Hash() Hash { return CanonicalHash(&t.Body) }

// PKH is the identity of the committing witness.
func (t *CommitTransaction) PKH() PublicKeyHash {
	if len(t.Signatures) == 0 {
		return PublicKeyHash{}
	}
	return t.Signatures[0].PublicKeyHash()
}

// RevealTransactionBody reveals the value a witness committed to.
type RevealTransactionBody struct {
	DRPointer Hash          `json:"drPointer"`
	Reveal    []byte        `json:"reveal"`
	PKH       PublicKeyHash `json:"pkh"`
}

// RevealTransaction is the second phase of a witness resolution.
type RevealTransaction struct {
	Body       RevealTransactionBody `json:"body"`
	Signatures []KeyedSignature      `json:"signatures"`
}

// Hash returns the digest of the transaction body.
func (t *RevealTransaction) Hash() Hash { return CanonicalHash(&t.Body) }

// TallyTransaction closes a data request, publishing the aggregated result
// and paying out the witnesses.
type TallyTransaction struct {
	DRPointer      Hash                  `json:"drPointer"`
	Tally          []byte                `json:"tally"`
	Outputs        []ValueTransferOutput `json:"outputs"`
	OutOfConsensus []PublicKeyHash       `json:"outOfConsensus"`
}

// Hash returns the digest of the transaction.
func (t *TallyTransaction) Hash() Hash { return CanonicalHash(t) }

// MintTransaction creates the block reward.
type MintTransaction struct {
	Epoch  Epoch               `json:"epoch"`
	Output ValueTransferOutput `json:"output"`
}

// Hash returns the digest of the transaction.
func (t *MintTransaction) Hash() Hash { return CanonicalHash(t) }

// TransactionKind discriminates the transaction types carried by blocks.
type TransactionKind int

// The transaction kinds, in block ordering.
const (
	TxMint TransactionKind = iota
	TxValueTransfer
	TxDataRequest
	TxCommit
	TxReveal
	TxTally
)

// Transaction is any of the chain transaction types.
type Transaction interface {
	Hash() Hash
	Kind() TransactionKind
}

// Kind implements Transaction.
func (t *VTTransaction) Kind() TransactionKind { return TxValueTransfer }

// Kind implements Transaction.
func (t *DRTransaction) Kind() TransactionKind { return TxDataRequest }

// Kind implements Transaction.
func (t *CommitTransaction) Kind() TransactionKind { return TxCommit }

// Kind implements Transaction.
func (t *RevealTransaction) Kind() TransactionKind { return TxReveal }

// Kind implements Transaction.
func (t *TallyTransaction) Kind() TransactionKind { return TxTally }

// Kind implements Transaction.
func (t *MintTransaction) Kind() TransactionKind { return TxMint }
