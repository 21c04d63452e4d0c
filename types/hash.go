// Package types defines the data structures of the oraculum chain: blocks,
// transactions, beacons, the unspent outputs pool, the data request pool, the
// reputation engine and the superblock layer.
package types

import (
	"encoding/hex"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/oraculum-network/oraculum/shared/hashutil"
)

var canonicalJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Hash is a 32 byte sha256 digest.
type Hash [32]byte

// ErrInvalidHashLength is returned when parsing a hex string whose length does
// not match 32 bytes.
var ErrInvalidHashLength = errors.New("hash must be 64 hexadecimal characters")

// HashFromString parses a 64 character hex string into a Hash.
func HashFromString(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, ErrInvalidHashLength
	}
	copy(h[:], b)
	return h, nil
}

// String returns the full hex representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is all zeroes.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalText encodes the hash as a hex string. Text marshalling keeps
// hashes usable both as JSON values and as JSON map keys.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes the hash from a hex string.
func (h *Hash) UnmarshalText(data []byte) error {
	parsed, err := HashFromString(string(data))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// CanonicalHash returns the sha256 digest of the canonical encoding of v.
// The canonical encoding is the deterministic JSON rendering of the value,
// which is stable across nodes for the struct types defined in this package.
func CanonicalHash(v interface{}) Hash {
	enc, err := canonicalJSON.Marshal(v)
	if err != nil {
		// Marshalling the chain data structures cannot fail: they contain no
		// channels, functions or cycles.
		panic(err)
	}
	return Hash(hashutil.Hash(enc))
}
