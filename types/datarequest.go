package types

// DataRequestStage is the lifecycle stage of an in-flight data request.
type DataRequestStage int

// The stages a data request advances through before finalization.
const (
	StageCommit DataRequestStage = iota
	StageReveal
	StageTally
	StageFinished
)

// String implements fmt.Stringer.
func (s DataRequestStage) String() string {
	switch s {
	case StageCommit:
		return "COMMIT"
	case StageReveal:
		return "REVEAL"
	case StageTally:
		return "TALLY"
	case StageFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// DataRequestInfo collects everything known about a data request, in memory
// while it is being resolved and persisted once finalized.
type DataRequestInfo struct {
	BlockHashDRTx    *Hash                  `json:"blockHashDrTx"`
	BlockHashTallyTx *Hash                  `json:"blockHashTallyTx"`
	Commits          map[PublicKeyHash]Hash `json:"commits"`
	Reveals          map[PublicKeyHash]Hash `json:"reveals"`
	Tally            *TallyTransaction      `json:"tally"`
	CurrentStage     DataRequestStage       `json:"currentStage"`
}

// DataRequestState is the in-memory lifecycle state of one data request.
type DataRequestState struct {
	DataRequestOutput DataRequestOutput    `json:"dataRequestOutput"`
	PKH               PublicKeyHash        `json:"pkh"`
	Epoch             Epoch                `json:"epoch"`
	Info              DataRequestInfo      `json:"info"`
	Commits           []*CommitTransaction `json:"commitTxns"`
	Reveals           []*RevealTransaction `json:"revealTxns"`
}

// DataRequestReport is the finalized record persisted under the
// DR-REPORT-<dr_pointer> storage key.
type DataRequestReport struct {
	DRPointer         Hash              `json:"drPointer"`
	DataRequestOutput DataRequestOutput `json:"dataRequestOutput"`
	Info              DataRequestInfo   `json:"info"`
}

// DataRequestPool tracks the lifecycle of every unresolved data request.
type DataRequestPool struct {
	DataRequests     map[Hash]*DataRequestState  `json:"dataRequests"`
	WaitingForReveal map[Hash]*RevealTransaction `json:"waitingForReveal"`

	// finished accumulates finalized requests until they are drained for
	// persistence at the end of an epoch or a sync batch.
	finished []DataRequestReport
}

// NewDataRequestPool returns an empty pool.
func NewDataRequestPool() *DataRequestPool {
	return &DataRequestPool{
		DataRequests:     make(map[Hash]*DataRequestState),
		WaitingForReveal: make(map[Hash]*RevealTransaction),
	}
}

// InsertReveal holds a reveal transaction until its commit has been
// consolidated and the request reaches the reveal stage.
func (p *DataRequestPool) InsertReveal(drPointer Hash, reveal *RevealTransaction) {
	if p.WaitingForReveal == nil {
		p.WaitingForReveal = make(map[Hash]*RevealTransaction)
	}
	p.WaitingForReveal[drPointer] = reveal
}

// AddDataRequest registers a newly consolidated data request transaction.
func (p *DataRequestPool) AddDataRequest(epoch Epoch, tx *DRTransaction, blockHash Hash) {
	drPointer := tx.Hash()
	if p.DataRequests == nil {
		p.DataRequests = make(map[Hash]*DataRequestState)
	}
	blockHashCopy := blockHash
	p.DataRequests[drPointer] = &DataRequestState{
		DataRequestOutput: tx.Body.DROutput,
		PKH:               pkhOfFirstSignature(tx.Signatures),
		Epoch:             epoch,
		Info: DataRequestInfo{
			BlockHashDRTx: &blockHashCopy,
			Commits:       make(map[PublicKeyHash]Hash),
			Reveals:       make(map[PublicKeyHash]Hash),
			CurrentStage:  StageCommit,
		},
	}
}

// AddCommit records a consolidated commit for a pending request.
func (p *DataRequestPool) AddCommit(tx *CommitTransaction) {
	state, ok := p.DataRequests[tx.Body.DRPointer]
	if !ok {
		return
	}
	state.Commits = append(state.Commits, tx)
	state.Info.Commits[tx.PKH()] = tx.Hash()
}

// AddReveal records a consolidated reveal for a pending request.
func (p *DataRequestPool) AddReveal(tx *RevealTransaction) {
	state, ok := p.DataRequests[tx.Body.DRPointer]
	if !ok {
		return
	}
	state.Reveals = append(state.Reveals, tx)
	state.Info.Reveals[tx.Body.PKH] = tx.Hash()
}

// AddTally finalizes a request. The request leaves the pool and its report is
// queued for persistence.
func (p *DataRequestPool) AddTally(tx *TallyTransaction, blockHash Hash) {
	state, ok := p.DataRequests[tx.DRPointer]
	if !ok {
		return
	}
	blockHashCopy := blockHash
	state.Info.BlockHashTallyTx = &blockHashCopy
	state.Info.Tally = tx
	state.Info.CurrentStage = StageFinished
	p.finished = append(p.finished, DataRequestReport{
		DRPointer:         tx.DRPointer,
		DataRequestOutput: state.DataRequestOutput,
		Info:              state.Info,
	})
	delete(p.DataRequests, tx.DRPointer)
	delete(p.WaitingForReveal, tx.DRPointer)
}

// UpdateStages advances commit-stage requests with enough commits to the
// reveal stage, and reveal-stage requests with all reveals to the tally
// stage. Returns the reveals that became broadcastable.
func (p *DataRequestPool) UpdateStages() []*RevealTransaction {
	var broadcast []*RevealTransaction
	for drPointer, state := range p.DataRequests {
		switch state.Info.CurrentStage {
		case StageCommit:
			if len(state.Commits) > 0 {
				state.Info.CurrentStage = StageReveal
				if reveal, ok := p.WaitingForReveal[drPointer]; ok {
					broadcast = append(broadcast, reveal)
				}
			}
		case StageReveal:
			if len(state.Reveals) >= len(state.Commits) && len(state.Commits) > 0 {
				state.Info.CurrentStage = StageTally
			}
		}
	}
	return broadcast
}

// Get returns the in-memory state of a request, if it is still unresolved.
func (p *DataRequestPool) Get(drPointer Hash) (*DataRequestState, bool) {
	state, ok := p.DataRequests[drPointer]
	return state, ok
}

// FinishedDataRequests drains the reports of the requests finalized since the
// last call.
func (p *DataRequestPool) FinishedDataRequests() []DataRequestReport {
	finished := p.finished
	p.finished = nil
	return finished
}

func pkhOfFirstSignature(sigs []KeyedSignature) PublicKeyHash {
	if len(sigs) == 0 {
		return PublicKeyHash{}
	}
	return sigs[0].PublicKeyHash()
}
