package epochs

import (
	"time"

	"github.com/oraculum-network/oraculum/shared/roughtime"
	"github.com/oraculum-network/oraculum/types"
)

// TickerProvider is the interface exposed to consumers of epoch ticks. Tests
// inject synthetic ticks by feeding a plain channel through a fake provider.
type TickerProvider interface {
	C() <-chan types.Epoch
	Done()
}

// Ticker emits the epoch number on every epoch boundary.
type Ticker struct {
	c    chan types.Epoch
	done chan struct{}
}

// NewTicker starts a ticker anchored at checkpoint zero.
func NewTicker(constants Constants) *Ticker {
	t := &Ticker{
		c:    make(chan types.Epoch),
		done: make(chan struct{}),
	}
	t.start(constants.CheckpointZero(), uint64(constants.CheckpointsPeriod), roughtime.Since, roughtime.Until, time.After)
	return t
}

// C returns the channel on which epoch boundaries are delivered.
func (t *Ticker) C() <-chan types.Epoch {
	return t.c
}

// Done stops the ticker goroutine.
func (t *Ticker) Done() {
	go func() {
		t.done <- struct{}{}
	}()
}

func (t *Ticker) start(
	genesisTime time.Time,
	secondsPerEpoch uint64,
	since, until func(time.Time) time.Duration,
	after func(time.Duration) <-chan time.Time,
) {
	d := time.Duration(secondsPerEpoch) * time.Second

	go func() {
		sinceGenesis := since(genesisTime)

		var nextTickTime time.Time
		var epoch types.Epoch
		if sinceGenesis < 0 {
			// Before checkpoint zero, wait for it and tick epoch 0.
			nextTickTime = genesisTime
			epoch = 0
		} else {
			nextTick := sinceGenesis.Truncate(d) + d
			nextTickTime = genesisTime.Add(nextTick)
			epoch = types.Epoch(nextTick / d)
		}

		for {
			waitTime := until(nextTickTime)
			select {
			case <-after(waitTime):
				t.c <- epoch
				epoch++
				nextTickTime = nextTickTime.Add(d)
			case <-t.done:
				return
			}
		}
	}()
}
