package epochs

import (
	"testing"
	"time"

	"github.com/oraculum-network/oraculum/shared/testutil/assert"
	"github.com/oraculum-network/oraculum/shared/testutil/require"
	"github.com/oraculum-network/oraculum/types"
)

func TestTicker(t *testing.T) {
	ticker := &Ticker{
		c:    make(chan types.Epoch),
		done: make(chan struct{}),
	}
	defer ticker.Done()

	var sinceDuration time.Duration
	since := func(time.Time) time.Duration {
		return sinceDuration
	}

	var untilDuration time.Duration
	until := func(time.Time) time.Duration {
		return untilDuration
	}

	var tick chan time.Time
	after := func(time.Duration) <-chan time.Time {
		return tick
	}

	checkpointZero := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	secondsPerEpoch := uint64(8)

	// The ticker starts one second after checkpoint zero.
	sinceDuration = 1 * time.Second
	untilDuration = 7 * time.Second

	// Buffered to prevent a deadlock since the other goroutine calls a
	// function in this goroutine.
	tick = make(chan time.Time, 2)
	ticker.start(checkpointZero, secondsPerEpoch, since, until, after)

	tick <- time.Now()
	assert.Equal(t, types.Epoch(1), <-ticker.C())

	tick <- time.Now()
	assert.Equal(t, types.Epoch(2), <-ticker.C())
}

func TestTickerBeforeCheckpointZero(t *testing.T) {
	ticker := &Ticker{
		c:    make(chan types.Epoch),
		done: make(chan struct{}),
	}
	defer ticker.Done()

	since := func(time.Time) time.Duration { return -1 * time.Second }
	until := func(time.Time) time.Duration { return 1 * time.Second }
	tick := make(chan time.Time, 2)
	after := func(time.Duration) <-chan time.Time { return tick }

	checkpointZero := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ticker.start(checkpointZero, 8, since, until, after)

	tick <- time.Now()
	assert.Equal(t, types.Epoch(0), <-ticker.C())

	tick <- time.Now()
	assert.Equal(t, types.Epoch(1), <-ticker.C())
}

func TestEpochAt(t *testing.T) {
	c := Constants{CheckpointZeroTimestamp: 1000, CheckpointsPeriod: 30}

	epoch, err := c.EpochAt(1000)
	require.NoError(t, err)
	assert.Equal(t, types.Epoch(0), epoch)

	epoch, err = c.EpochAt(1059)
	require.NoError(t, err)
	assert.Equal(t, types.Epoch(1), epoch)

	epoch, err = c.EpochAt(1060)
	require.NoError(t, err)
	assert.Equal(t, types.Epoch(2), epoch)

	_, err = c.EpochAt(999)
	assert.Equal(t, ErrBeforeCheckpointZero, err)
}

func TestTimestampAt(t *testing.T) {
	c := Constants{CheckpointZeroTimestamp: 1000, CheckpointsPeriod: 30}
	assert.Equal(t, int64(1000), c.TimestampAt(0))
	assert.Equal(t, int64(1300), c.TimestampAt(10))
}
