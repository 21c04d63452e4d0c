package txfactory

import (
	"context"

	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"

	"github.com/oraculum-network/oraculum/types"
)

// Signer produces keyed signatures over transaction digests. Signing is
// asynchronous from the chain manager's point of view: implementations may
// hop to a key management process.
type Signer interface {
	Sign(ctx context.Context, digest types.Hash) (types.KeyedSignature, error)
	PublicKeyHash() types.PublicKeyHash
}

// Secp256k1Signer signs with an in-process secp256k1 private key.
type Secp256k1Signer struct {
	priv *btcec.PrivateKey
}

// NewSecp256k1Signer wraps a private key.
func NewSecp256k1Signer(priv *btcec.PrivateKey) *Secp256k1Signer {
	return &Secp256k1Signer{priv: priv}
}

// Sign implements Signer.
func (s *Secp256k1Signer) Sign(ctx context.Context, digest types.Hash) (types.KeyedSignature, error) {
	if err := ctx.Err(); err != nil {
		return types.KeyedSignature{}, err
	}
	sig, err := s.priv.Sign(digest[:])
	if err != nil {
		return types.KeyedSignature{}, errors.Wrap(err, "could not sign digest")
	}
	return types.KeyedSignature{
		Signature: sig.Serialize(),
		PublicKey: s.priv.PubKey().SerializeCompressed(),
	}, nil
}

// PublicKeyHash implements Signer.
func (s *Secp256k1Signer) PublicKeyHash() types.PublicKeyHash {
	return types.PublicKeyHashFromBytes(s.priv.PubKey().SerializeCompressed())
}

// SignTransaction signs a transaction body digest once per input, as the
// consensus rules require.
func SignTransaction(ctx context.Context, signer Signer, bodyHash types.Hash, numInputs int) ([]types.KeyedSignature, error) {
	signatures := make([]types.KeyedSignature, 0, numInputs)
	for i := 0; i < numInputs; i++ {
		sig, err := signer.Sign(ctx, bodyHash)
		if err != nil {
			return nil, err
		}
		signatures = append(signatures, sig)
	}
	return signatures, nil
}
