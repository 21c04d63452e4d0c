package storage

import (
	"github.com/oraculum-network/oraculum/types"
)

// The fields below define the buckets and well-known keys of the store.
//
// chain-state             -> the latest chain state snapshot
// block:<hash>            -> one consolidated block
// DR-REPORT-<dr_pointer>  -> one finalized data request report
// block index             -> epoch (big endian) -> block hash
var (
	chainMetadataBucket     = []byte("chain-metadata")
	blocksBucket            = []byte("blocks")
	drReportsBucket         = []byte("dr-reports")
	blockEpochIndicesBucket = []byte("block-epoch-indices")

	chainStateKey = []byte("chain-state")

	blockKeyPrefix    = []byte("block:")
	drReportKeyPrefix = []byte("DR-REPORT-")
)

func blockKey(hash types.Hash) []byte {
	return append(append([]byte{}, blockKeyPrefix...), hash[:]...)
}

func drReportKey(drPointer types.Hash) []byte {
	return append(append([]byte{}, drReportKeyPrefix...), []byte(drPointer.String())...)
}
