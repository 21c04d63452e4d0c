package types

import (
	"sort"

	"github.com/pkg/errors"
)

// Reputation is the non-negative score of an identity.
type Reputation uint32

// ErrNonMonotonicUpdate is returned when the active reputation set is asked
// to apply an update for an epoch older than its cursor.
var ErrNonMonotonicUpdate = errors.New("active reputation set updates must move forward in time")

// ActiveReputationSet tracks which identities have shown activity within the
// last ActivityPeriod epochs. Its epoch cursor always equals the epoch of the
// most recently consolidated (possibly empty) block.
type ActiveReputationSet struct {
	ActivityPeriod uint32                    `json:"activityPeriod"`
	LastUpdate     Epoch                     `json:"lastUpdate"`
	Updated        bool                      `json:"updated"`
	Buffer         map[Epoch][]PublicKeyHash `json:"buffer"`
	Counts         map[PublicKeyHash]uint32  `json:"counts"`
}

// NewActiveReputationSet returns an empty set with the given activity window.
func NewActiveReputationSet(activityPeriod uint32) *ActiveReputationSet {
	return &ActiveReputationSet{
		ActivityPeriod: activityPeriod,
		Buffer:         make(map[Epoch][]PublicKeyHash),
		Counts:         make(map[PublicKeyHash]uint32),
	}
}

// Update records the identities active during the given epoch, filling any
// intermediate epochs with no activity and expiring epochs that fall out of
// the activity window.
func (a *ActiveReputationSet) Update(identities []PublicKeyHash, epoch Epoch) error {
	if a.Updated && epoch <= a.LastUpdate {
		return errors.Wrapf(ErrNonMonotonicUpdate, "cursor %d, got %d", a.LastUpdate, epoch)
	}
	if len(identities) > 0 {
		if a.Buffer == nil {
			a.Buffer = make(map[Epoch][]PublicKeyHash)
		}
		if a.Counts == nil {
			a.Counts = make(map[PublicKeyHash]uint32)
		}
		a.Buffer[epoch] = identities
		for _, pkh := range identities {
			a.Counts[pkh]++
		}
	}
	a.LastUpdate = epoch
	a.Updated = true
	a.expire(epoch)
	return nil
}

// UpdateEmpty advances the cursor with empty updates so that the next real
// update can happen at the given epoch.
func (a *ActiveReputationSet) UpdateEmpty(epoch Epoch) error {
	if epoch == 0 {
		return nil
	}
	target := epoch - 1
	if a.Updated && target <= a.LastUpdate {
		return nil
	}
	return a.Update(nil, target)
}

// expire drops activity that happened before the window [epoch-ActivityPeriod, epoch].
func (a *ActiveReputationSet) expire(epoch Epoch) {
	if epoch < a.ActivityPeriod {
		return
	}
	oldest := epoch - a.ActivityPeriod
	for e, identities := range a.Buffer {
		if e >= oldest {
			continue
		}
		for _, pkh := range identities {
			if a.Counts[pkh] <= 1 {
				delete(a.Counts, pkh)
			} else {
				a.Counts[pkh]--
			}
		}
		delete(a.Buffer, e)
	}
}

// Contains reports whether the identity is currently active.
func (a *ActiveReputationSet) Contains(pkh PublicKeyHash) bool {
	return a.Counts[pkh] > 0
}

// ActiveIdentitiesNumber returns the number of currently active identities.
func (a *ActiveReputationSet) ActiveIdentitiesNumber() int {
	return len(a.Counts)
}

// Identities returns the active identities in a stable order.
func (a *ActiveReputationSet) Identities() []PublicKeyHash {
	identities := make([]PublicKeyHash, 0, len(a.Counts))
	for pkh := range a.Counts {
		identities = append(identities, pkh)
	}
	sort.Slice(identities, func(i, j int) bool {
		return identities[i].String() < identities[j].String()
	})
	return identities
}

// TotalReputationSet maps every identity ever seen to its reputation score.
type TotalReputationSet struct {
	Scores map[PublicKeyHash]Reputation `json:"scores"`
}

// NewTotalReputationSet returns an empty score table.
func NewTotalReputationSet() *TotalReputationSet {
	return &TotalReputationSet{Scores: make(map[PublicKeyHash]Reputation)}
}

// Get returns the score of an identity, zero if unknown.
func (t *TotalReputationSet) Get(pkh PublicKeyHash) Reputation {
	return t.Scores[pkh]
}

// Gain adds reputation to an identity.
func (t *TotalReputationSet) Gain(pkh PublicKeyHash, amount Reputation) {
	if t.Scores == nil {
		t.Scores = make(map[PublicKeyHash]Reputation)
	}
	t.Scores[pkh] += amount
}

// Identities returns a copy of the whole score table.
func (t *TotalReputationSet) Identities() map[PublicKeyHash]Reputation {
	out := make(map[PublicKeyHash]Reputation, len(t.Scores))
	for pkh, rep := range t.Scores {
		out[pkh] = rep
	}
	return out
}

// ReputationEngine couples the active set with the score table.
type ReputationEngine struct {
	ARS *ActiveReputationSet `json:"ars"`
	TRS *TotalReputationSet  `json:"trs"`
}

// NewReputationEngine returns an engine with empty sets.
func NewReputationEngine(activityPeriod uint32) *ReputationEngine {
	return &ReputationEngine{
		ARS: NewActiveReputationSet(activityPeriod),
		TRS: NewTotalReputationSet(),
	}
}

// TotalActiveReputation sums the scores of the active identities, counting
// one extra point per identity so that identities with zero score still
// weigh in eligibility.
func (r *ReputationEngine) TotalActiveReputation() uint64 {
	var total uint64
	for pkh := range r.ARS.Counts {
		total += uint64(r.TRS.Get(pkh)) + 1
	}
	return total
}
