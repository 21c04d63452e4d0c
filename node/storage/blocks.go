package storage

import (
	"context"

	bolt "go.etcd.io/bbolt"

	"github.com/oraculum-network/oraculum/shared/bytesutil"
	"github.com/oraculum-network/oraculum/types"
)

// SaveBlock persists one block under its hash and indexes it by epoch.
func (s *Store) SaveBlock(ctx context.Context, block *types.Block) error {
	return s.SaveBlocksBatch(ctx, []*types.Block{block})
}

// SaveBlocksBatch persists a batch of blocks in a single transaction.
func (s *Store) SaveBlocksBatch(ctx context.Context, blocks []*types.Block) error {
	encoded := make([][]byte, len(blocks))
	hashes := make([]types.Hash, len(blocks))
	for i, block := range blocks {
		enc, err := encode(block)
		if err != nil {
			return err
		}
		encoded[i] = enc
		hashes[i] = block.Hash()
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(blocksBucket)
		idx := tx.Bucket(blockEpochIndicesBucket)
		for i, block := range blocks {
			if err := bkt.Put(blockKey(hashes[i]), encoded[i]); err != nil {
				return err
			}
			epochKey := bytesutil.Uint32ToBytesBigEndian(block.Epoch())
			if err := idx.Put(epochKey, hashes[i][:]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i, block := range blocks {
		s.blockCache.Set(string(hashes[i][:]), block, int64(len(encoded[i])))
	}
	return nil
}

// Block retrieves a block by hash. Returns ErrNotFound for unknown hashes.
func (s *Store) Block(ctx context.Context, hash types.Hash) (*types.Block, error) {
	if cached, ok := s.blockCache.Get(string(hash[:])); ok {
		return cached.(*types.Block), nil
	}
	block := &types.Block{}
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(blocksBucket).Get(blockKey(hash))
		if enc == nil {
			return ErrNotFound
		}
		return decode(enc, block)
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// HasBlock reports whether a block with the given hash has been persisted.
func (s *Store) HasBlock(ctx context.Context, hash types.Hash) bool {
	if _, ok := s.blockCache.Get(string(hash[:])); ok {
		return true
	}
	var exists bool
	if err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(blocksBucket).Get(blockKey(hash)) != nil
		return nil
	}); err != nil {
		return false
	}
	return exists
}

// BlockHashByEpoch reads the epoch index. Returns ErrNotFound when no block
// was consolidated at that epoch.
func (s *Store) BlockHashByEpoch(ctx context.Context, epoch types.Epoch) (types.Hash, error) {
	var hash types.Hash
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(blockEpochIndicesBucket).Get(bytesutil.Uint32ToBytesBigEndian(epoch))
		if enc == nil {
			return ErrNotFound
		}
		hash = types.Hash(bytesutil.ToBytes32(enc))
		return nil
	})
	return hash, err
}
