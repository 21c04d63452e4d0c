// Package hashutil includes all hash-function related helpers.
package hashutil

import (
	"github.com/minio/sha256-simd"
)

// Hash defines a function that returns the sha256 checksum of the data passed in.
func Hash(data []byte) [32]byte {
	var hash [32]byte
	h := sha256.New()
	// The hash interface never returns an error, for that reason
	// we are not handling the error below. For reference, it is
	// stated here https://golang.org/pkg/hash/#Hash
	// #nosec G104
	h.Write(data)
	h.Sum(hash[:0])
	return hash
}

// HashCat hashes the concatenation of the two inputs. It is used to build the
// merkle trees that commit to block and superblock contents.
func HashCat(a [32]byte, b [32]byte) [32]byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return Hash(buf)
}

// MerkleRoot computes the root of a binary merkle tree whose leaves are the
// given hashes. Odd nodes are promoted to the next level unhashed. The root of
// an empty tree is the zero hash.
func MerkleRoot(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}
	level := make([][32]byte, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, HashCat(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}
