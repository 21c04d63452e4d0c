package storage

import (
	"context"

	"github.com/dustin/go-humanize"
	bolt "go.etcd.io/bbolt"

	"github.com/oraculum-network/oraculum/types"
)

// SaveChainState overwrites the chain state snapshot. The snapshot is the
// rollback point: it is written once the target superblock of a sync batch
// validates, after every consolidated candidate block and at every superblock
// close.
func (s *Store) SaveChainState(ctx context.Context, state *types.ChainState) error {
	enc, err := encode(state)
	if err != nil {
		return err
	}
	log.WithField("size", humanize.Bytes(uint64(len(enc)))).Debug("Persisting chain state snapshot")
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chainMetadataBucket).Put(chainStateKey, enc)
	})
}

// ChainState restores the last persisted snapshot. Returns nil when no
// snapshot has ever been saved.
func (s *Store) ChainState(ctx context.Context) (*types.ChainState, error) {
	var state *types.ChainState
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(chainMetadataBucket).Get(chainStateKey)
		if enc == nil {
			return nil
		}
		state = &types.ChainState{}
		return decode(enc, state)
	})
	return state, err
}
