package chain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oraculum-network/oraculum/types"
)

// PeerBeacon is one peer's report: the address of the peer and the beacon it
// sent this epoch, or nil if it sent none.
type PeerBeacon struct {
	Address string
	Beacon  *types.LastBeacon
}

// PeersBeacons is the per-epoch snapshot of every outbound peer's reported
// beacon, delivered by the session layer once per epoch. The slice preserves
// insertion order, which makes the tie-break rule deterministic.
type PeersBeacons struct {
	PB            []PeerBeacon
	OutboundLimit uint16
}

// PrettyFormat renders a {beacon: [peers]} map for the logs.
func (p *PeersBeacons) PrettyFormat() string {
	beaconPeers := make(map[string][]string)
	for _, pb := range p.PB {
		key := "NO BEACON"
		if pb.Beacon != nil {
			key = pb.Beacon.HighestBlockCheckpoint.String()
		}
		beaconPeers[key] = append(beaconPeers[key], pb.Address)
	}
	keys := make([]string, 0, len(beaconPeers))
	for k := range beaconPeers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %v", k, beaconPeers[k])
	}
	b.WriteString("}")
	return b.String()
}

// missingPeers counts the silent outbound slots: the configured outbound
// limit minus the peers present in the snapshot. Receiving more beacons than
// the outbound limit means a bookkeeping race in the session layer.
func (p *PeersBeacons) missingPeers() int {
	if p.OutboundLimit == 0 {
		return 0
	}
	if len(p.PB) > int(p.OutboundLimit) {
		panic("received more beacons than the outbound limit, check the session layer for race conditions")
	}
	return int(p.OutboundLimit) - len(p.PB)
}

// modeConsensus returns the most repeated beacon among the votes, provided
// its count reaches the threshold percentage of the total number of votes.
// Ties resolve to the first-inserted beacon among the tied maxima.
func modeConsensus(votes []*types.CheckpointBeacon, thresholdPercent int) *types.CheckpointBeacon {
	type tally struct {
		beacon *types.CheckpointBeacon
		count  int
	}
	var tallies []tally
	total := 0
	for _, v := range votes {
		total++
		found := false
		for i := range tallies {
			if beaconPtrEq(tallies[i].beacon, v) {
				tallies[i].count++
				found = true
				break
			}
		}
		if !found {
			tallies = append(tallies, tally{beacon: v, count: 1})
		}
	}
	best := tally{}
	for _, t := range tallies {
		if t.count > best.count {
			best = t
		}
	}
	if best.count*100 < total*thresholdPercent || best.count == 0 {
		return nil
	}
	if best.beacon == nil {
		// Most of the peers did not send a beacon: same as no consensus.
		return nil
	}
	return best.beacon
}

func beaconPtrEq(a, b *types.CheckpointBeacon) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// BlockConsensus runs the consensus on the block beacons alone. Peers that
// have not reported count as disagreeing votes, as do the missing outbound
// slots.
func (p *PeersBeacons) BlockConsensus(consensusThreshold int) *types.CheckpointBeacon {
	votes := make([]*types.CheckpointBeacon, 0, len(p.PB)+p.missingPeers())
	for _, pb := range p.PB {
		if pb.Beacon != nil {
			beacon := pb.Beacon.HighestBlockCheckpoint
			votes = append(votes, &beacon)
		} else {
			votes = append(votes, nil)
		}
	}
	for i := 0; i < p.missingPeers(); i++ {
		votes = append(votes, nil)
	}
	return modeConsensus(votes, consensusThreshold)
}

// SuperblockConsensus runs the two-level consensus: first the mode over the
// superblock beacons, then the mode over the block beacons of the peers that
// agreed on the winning superblock. The boolean reports whether the block
// beacon itself reached the threshold among those peers.
func (p *PeersBeacons) SuperblockConsensus(consensusThreshold int) (*types.LastBeacon, bool) {
	votes := make([]*types.CheckpointBeacon, 0, len(p.PB)+p.missingPeers())
	for _, pb := range p.PB {
		if pb.Beacon != nil {
			beacon := pb.Beacon.HighestSuperblockCheckpoint
			votes = append(votes, &beacon)
		} else {
			votes = append(votes, nil)
		}
	}
	for i := 0; i < p.missingPeers(); i++ {
		votes = append(votes, nil)
	}
	superblockConsensus := modeConsensus(votes, consensusThreshold)
	if superblockConsensus == nil {
		return nil, false
	}

	// Use only the block beacons of the peers that voted the winning
	// superblock. Three cases:
	//  * a threshold majority agrees on a block: that block wins and peers
	//    voting a different block are evicted;
	//  * a plurality below threshold: that plurality is still the block
	//    consensus, but eviction happens on the superblock beacon instead;
	//  * a tie: the first-inserted beacon wins.
	var blockBeacons []*types.CheckpointBeacon
	for _, pb := range p.PB {
		if pb.Beacon != nil && pb.Beacon.HighestSuperblockCheckpoint == *superblockConsensus {
			beacon := pb.Beacon.HighestBlockCheckpoint
			blockBeacons = append(blockBeacons, &beacon)
		}
	}
	isBlockMajority := true
	blockConsensus := modeConsensus(blockBeacons, consensusThreshold)
	if blockConsensus == nil {
		isBlockMajority = false
		blockConsensus = modeConsensus(blockBeacons, 0)
		if blockConsensus == nil {
			blockConsensus = blockBeacons[0]
		}
	}

	return &types.LastBeacon{
		HighestBlockCheckpoint:      *blockConsensus,
		HighestSuperblockCheckpoint: *superblockConsensus,
	}, isBlockMajority
}

// DecidePeersToUnregister returns the peers whose block beacon differs from
// the given one, peers with no beacon included.
func (p *PeersBeacons) DecidePeersToUnregister(beacon types.CheckpointBeacon) []string {
	var out []string
	for _, pb := range p.PB {
		if pb.Beacon == nil || pb.Beacon.HighestBlockCheckpoint != beacon {
			out = append(out, pb.Address)
		}
	}
	return out
}

// DecidePeersToUnregisterSuperblock returns the peers whose superblock
// beacon differs from the given one, peers with no beacon included.
func (p *PeersBeacons) DecidePeersToUnregisterSuperblock(superbeacon types.CheckpointBeacon) []string {
	var out []string
	for _, pb := range p.PB {
		if pb.Beacon == nil || pb.Beacon.HighestSuperblockCheckpoint != superbeacon {
			out = append(out, pb.Address)
		}
	}
	return out
}

// PeersWithNoBeacon returns the peers that reported nothing this epoch.
func (p *PeersBeacons) PeersWithNoBeacon() []string {
	var out []string
	for _, pb := range p.PB {
		if pb.Beacon == nil {
			out = append(out, pb.Address)
		}
	}
	return out
}

// AllAddresses returns every peer in the snapshot.
func (p *PeersBeacons) AllAddresses() []string {
	out := make([]string, 0, len(p.PB))
	for _, pb := range p.PB {
		out = append(out, pb.Address)
	}
	return out
}
