// Package chain implements the chain manager: the state machine that tracks
// the node's synchronization state, reaches consensus with peers on the tip
// of the chain via periodic beacon exchange, ingests block batches during
// catch-up, consolidates candidate blocks during normal operation and keeps
// the unspent output set, the data request pool, the reputation engine and
// the superblock layer coherent across epochs.
package chain

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/ethereum/go-ethereum/event"
	lru "github.com/hashicorp/golang-lru"
	"github.com/kevinms/leakybucket-go"
	"github.com/pkg/errors"

	"github.com/oraculum-network/oraculum/node/epochs"
	"github.com/oraculum-network/oraculum/node/mempool"
	"github.com/oraculum-network/oraculum/node/sessions"
	"github.com/oraculum-network/oraculum/node/txfactory"
	"github.com/oraculum-network/oraculum/types"
)

const (
	// seenCandidatesSize bounds the per-epoch candidate dedup cache.
	seenCandidatesSize = 1024
	// seenVotesSize bounds the superblock vote dedup cache.
	seenVotesSize = 4096
	// syncBatchWaitEpochs is how many epochs the node waits for a requested
	// blocks batch before asking again.
	syncBatchWaitEpochs = 10
	// batchRequestRate caps batch requests to one per second regardless of
	// how often the sync drive retries.
	batchRequestRate  = 1
	batchRequestBurst = 2
)

// Database is the storage gateway surface the chain manager depends on.
type Database interface {
	SaveChainState(ctx context.Context, state *types.ChainState) error
	ChainState(ctx context.Context) (*types.ChainState, error)
	SaveBlock(ctx context.Context, block *types.Block) error
	SaveBlocksBatch(ctx context.Context, blocks []*types.Block) error
	Block(ctx context.Context, hash types.Hash) (*types.Block, error)
	HasBlock(ctx context.Context, hash types.Hash) bool
	SaveDataRequestReport(ctx context.Context, report *types.DataRequestReport) error
	DataRequestReport(ctx context.Context, drPointer types.Hash) (*types.DataRequestReport, error)
}

// BlockCandidate is a block received for the current epoch together with the
// artifacts of validating it.
type BlockCandidate struct {
	Block      *types.Block
	UtxoDiff   *types.UtxoDiff
	Reputation types.Reputation
	VrfProof   types.Hash
}

// BlockProcessedEvent is published on the state feed after every
// consolidation.
type BlockProcessedEvent struct {
	BlockHash types.Hash
	Epoch     types.Epoch
}

// Config options for the chain manager service.
type Config struct {
	DB                 Database
	Gateway            sessions.Gateway
	ChainInfo          *types.ChainInfo
	Ticker             epochs.TickerProvider
	MiningEnabled      bool
	ConsensusThreshold int
	TxPendingTimeout   time.Duration
	// SecretKey enables the secp256k1 signing context and the eligibility
	// prover. A node without a key can follow the chain but never mine.
	SecretKey *btcec.PrivateKey
	// Resolver executes data requests for witnessing. A node without a
	// resolver never commits to data requests.
	Resolver DataRequestResolver
}

// Service is the chain manager. All of its mutable state is owned by the run
// loop goroutine: external callers interact through the mailbox only.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *Config

	mailbox chan func()

	// Everything below is touched only on the run loop.
	chainState     *types.ChainState
	lastChainState *types.ChainState
	smState        StateMachine

	epochConstants *epochs.Constants
	currentEpoch   *types.Epoch

	syncTarget                   *types.SyncTarget
	syncWaitingForAddBlocksSince *types.Epoch
	peersBeaconsReceived         bool

	candidates     map[types.Hash]*types.Block
	seenCandidates *lru.Cache
	bestCandidate  *BlockCandidate

	tempSuperblockVotes []*types.SuperBlockVote
	seenSuperblockVotes *lru.Cache

	mempool *mempool.Pool
	signer  txfactory.Signer
	vrfCtx  *eligibilityProver

	batchRequestLimiter *leakybucket.Collector

	stateFeed event.Feed
}

// NewService instantiates the chain manager.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	ctx, cancel := context.WithCancel(ctx)
	seenCandidates, err := lru.New(seenCandidatesSize)
	if err != nil {
		cancel()
		return nil, err
	}
	seenVotes, err := lru.New(seenVotesSize)
	if err != nil {
		cancel()
		return nil, err
	}
	constants := epochs.NewConstants(cfg.ChainInfo.ConsensusConstants)
	s := &Service{
		ctx:                 ctx,
		cancel:              cancel,
		cfg:                 cfg,
		mailbox:             make(chan func(), 1024),
		smState:             WaitingConsensus,
		epochConstants:      &constants,
		candidates:          make(map[types.Hash]*types.Block),
		seenCandidates:      seenCandidates,
		seenSuperblockVotes: seenVotes,
		mempool:             mempool.New(cfg.TxPendingTimeout),
		batchRequestLimiter: leakybucket.NewCollector(batchRequestRate, batchRequestBurst, false),
	}
	if cfg.SecretKey != nil {
		s.signer = txfactory.NewSecp256k1Signer(cfg.SecretKey)
		s.vrfCtx = newEligibilityProver(cfg.SecretKey)
	}
	return s, nil
}

// Start restores the chain state from storage and spins the run loop.
func (s *Service) Start() {
	s.initializeFromStorage(s.ctx)
	go s.run()
	log.WithField("environment", s.chainState.ChainInfo.Environment).
		WithField("magic", s.chainState.ChainInfo.ConsensusConstants.MagicNumber()).
		Info("Chain manager started")
}

// Stop terminates the run loop.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status returns an error while the node has not reached consensus with its
// peers.
func (s *Service) Status() error {
	if s.State() != Synced {
		return errors.New("syncing")
	}
	return nil
}

// run is the single-threaded event loop that owns the chain state. Handlers
// never run concurrently; mailbox order is FIFO.
func (s *Service) run() {
	var tick <-chan types.Epoch
	if s.cfg.Ticker != nil {
		tick = s.cfg.Ticker.C()
		defer s.cfg.Ticker.Done()
	}
	for {
		select {
		case epoch := <-tick:
			s.onEpochNotification(epoch)
		case f := <-s.mailbox:
			f()
		case <-s.ctx.Done():
			log.Debug("Context closed, exiting run loop")
			return
		}
	}
}

// do posts a fire-and-forget handler to the run loop.
func (s *Service) do(f func()) {
	select {
	case s.mailbox <- f:
	case <-s.ctx.Done():
	}
}

// call posts a handler to the run loop and blocks until it has executed.
func (s *Service) call(f func()) {
	done := make(chan struct{})
	s.do(func() {
		f()
		close(done)
	})
	select {
	case <-done:
	case <-s.ctx.Done():
	}
}

// initializeFromStorage restores the last persisted snapshot, falling back
// to the bootstrap state when the storage is empty. It also resets the
// in-memory indexes that only make sense for a live chain tip.
func (s *Service) initializeFromStorage(ctx context.Context) {
	state, err := s.cfg.DB.ChainState(ctx)
	if err != nil {
		log.WithError(err).Error("Could not restore chain state from storage")
	}
	if state == nil {
		state = types.NewChainState(s.cfg.ChainInfo)
		bootstrap := s.cfg.ChainInfo.ConsensusConstants.BootstrapHash
		state.ChainInfo.HighestBlockCheckpoint = types.CheckpointBeacon{HashPrevBlock: bootstrap}
		log.Info("Initialized bootstrap chain state")
	}
	s.chainState = state
	s.lastChainState = state.Clone()
	s.bestCandidate = nil
	s.candidates = make(map[types.Hash]*types.Block)
	s.seenCandidates.Purge()
	highestBlockEpochGauge.Set(float64(state.ChainInfo.HighestBlockCheckpoint.Checkpoint))
}

// setState applies a state machine transition and its bookkeeping.
func (s *Service) setState(next StateMachine) {
	if next == s.smState {
		return
	}
	log.WithField("from", s.smState).WithField("to", next).Debug("State machine transition")
	if next == WaitingConsensus {
		stateRegressionsCount.Inc()
	}
	s.smState = next
	currentStateGauge.Set(float64(next))
	if s.smState != Synchronizing {
		// If we are not synchronizing, forget about when we started.
		s.syncWaitingForAddBlocksSince = nil
	}
}

// State returns the current state machine state.
func (s *Service) State() StateMachine {
	var out StateMachine
	s.call(func() { out = s.smState })
	return out
}

// SubscribeBlockProcessed registers a block consolidation listener.
func (s *Service) SubscribeBlockProcessed(ch chan<- BlockProcessedEvent) event.Subscription {
	return s.stateFeed.Subscribe(ch)
}

// getChainBeacon must run on the run loop.
func (s *Service) getChainBeacon() types.CheckpointBeacon {
	return s.chainState.GetChainBeacon()
}

// getSuperblockBeacon must run on the run loop.
func (s *Service) getSuperblockBeacon() types.CheckpointBeacon {
	return s.chainState.GetSuperblockBeacon()
}

// consensusConstants must run on the run loop.
func (s *Service) consensusConstants() types.ConsensusConstants {
	return s.chainState.ChainInfo.ConsensusConstants
}

// chainReady reports whether the contexts every consolidation needs are
// present.
func (s *Service) chainReady() bool {
	return s.chainState != nil &&
		s.chainState.ReputationEngine != nil &&
		s.epochConstants != nil &&
		s.vrfCtx != nil &&
		s.signer != nil
}

// lastBeacon must run on the run loop.
func (s *Service) lastBeacon() types.LastBeacon {
	return types.LastBeacon{
		HighestBlockCheckpoint:      s.getChainBeacon(),
		HighestSuperblockCheckpoint: s.getSuperblockBeacon(),
	}
}

// broadcastLastBeacon advertises our tips, inbound-only when requested so
// that joining peers can bootstrap without feeding the consensus loop.
func (s *Service) broadcastLastBeacon(onlyInbound bool) {
	beacon := s.lastBeacon()
	s.cfg.Gateway.SetLastBeacon(beacon)
	s.cfg.Gateway.Broadcast(sessions.SendLastBeacon{LastBeacon: beacon}, onlyInbound)
}
