package storage

import (
	"context"

	bolt "go.etcd.io/bbolt"

	"github.com/oraculum-network/oraculum/types"
)

// SaveDataRequestReport persists a finalized data request report under the
// DR-REPORT-<dr_pointer> key.
func (s *Store) SaveDataRequestReport(ctx context.Context, report *types.DataRequestReport) error {
	enc, err := encode(report)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(drReportsBucket).Put(drReportKey(report.DRPointer), enc)
	})
}

// DataRequestReport retrieves a finalized report. Returns ErrNotFound for
// requests that never finalized on this node.
func (s *Store) DataRequestReport(ctx context.Context, drPointer types.Hash) (*types.DataRequestReport, error) {
	report := &types.DataRequestReport{}
	err := s.db.View(func(tx *bolt.Tx) error {
		enc := tx.Bucket(drReportsBucket).Get(drReportKey(drPointer))
		if enc == nil {
			return ErrNotFound
		}
		return decode(enc, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
