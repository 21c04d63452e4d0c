// Package epochs provides epoch arithmetic and the epoch ticker that drives
// the chain manager heartbeat.
package epochs

import (
	"time"

	"github.com/pkg/errors"

	"github.com/oraculum-network/oraculum/types"
)

// ErrBeforeCheckpointZero is returned when converting a timestamp earlier
// than the chain's checkpoint zero.
var ErrBeforeCheckpointZero = errors.New("timestamp is before checkpoint zero")

// Constants fix the epoch clock of a network: when epoch zero started and
// how long each epoch lasts.
type Constants struct {
	CheckpointZeroTimestamp int64
	CheckpointsPeriod       uint16
}

// NewConstants derives the epoch clock from the consensus constants.
func NewConstants(cc types.ConsensusConstants) Constants {
	return Constants{
		CheckpointZeroTimestamp: cc.CheckpointZeroTimestamp,
		CheckpointsPeriod:       cc.CheckpointsPeriod,
	}
}

// EpochAt returns the epoch a unix timestamp falls into.
func (c Constants) EpochAt(timestamp int64) (types.Epoch, error) {
	if timestamp < c.CheckpointZeroTimestamp {
		return 0, ErrBeforeCheckpointZero
	}
	elapsed := timestamp - c.CheckpointZeroTimestamp
	return types.Epoch(elapsed / int64(c.CheckpointsPeriod)), nil
}

// TimestampAt returns the unix timestamp at which the given epoch starts.
func (c Constants) TimestampAt(epoch types.Epoch) int64 {
	return c.CheckpointZeroTimestamp + int64(epoch)*int64(c.CheckpointsPeriod)
}

// CheckpointZero returns epoch zero's start as a time.Time.
func (c Constants) CheckpointZero() time.Time {
	return time.Unix(c.CheckpointZeroTimestamp, 0)
}
