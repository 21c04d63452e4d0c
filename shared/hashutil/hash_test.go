package hashutil

import (
	"testing"

	"github.com/oraculum-network/oraculum/shared/testutil/assert"
)

func TestHashDeterministic(t *testing.T) {
	assert.Equal(t, Hash([]byte("abc")), Hash([]byte("abc")))
	assert.NotEqual(t, Hash([]byte("abc")), Hash([]byte("abd")))
}

func TestMerkleRoot(t *testing.T) {
	// Empty tree commits to the zero hash.
	assert.Equal(t, [32]byte{}, MerkleRoot(nil))

	a := Hash([]byte("a"))
	b := Hash([]byte("b"))
	c := Hash([]byte("c"))

	// Single leaf is its own root.
	assert.Equal(t, a, MerkleRoot([][32]byte{a}))

	// Two leaves hash pairwise.
	assert.Equal(t, HashCat(a, b), MerkleRoot([][32]byte{a, b}))

	// Odd leaves promote the last one unhashed.
	assert.Equal(t, HashCat(HashCat(a, b), c), MerkleRoot([][32]byte{a, b, c}))

	// Order matters.
	assert.NotEqual(t, MerkleRoot([][32]byte{a, b}), MerkleRoot([][32]byte{b, a}))
}
