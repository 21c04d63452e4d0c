package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	consolidatedBlocksCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chain_consolidated_blocks_total",
		Help: "Total number of blocks consolidated into the chain",
	})
	invalidBatchesCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chain_invalid_batches_total",
		Help: "Total number of received block batches that failed validation",
	})
	stateRegressionsCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chain_state_regressions_total",
		Help: "Total number of regressions to the WaitingConsensus state",
	})
	peersUnregisteredCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chain_peers_unregistered_total",
		Help: "Total number of peers evicted by the beacon consensus rule",
	})
	superblockVotesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chain_superblock_votes_received_total",
		Help: "Total number of superblock votes received",
	})
	currentStateGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chain_state_machine_state",
		Help: "Current state machine state (0=WaitingConsensus, 1=Synchronizing, 2=AlmostSynced, 3=Synced)",
	})
	highestBlockEpochGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chain_highest_block_epoch",
		Help: "Epoch of the highest consolidated block",
	})
)
