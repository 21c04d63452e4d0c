package chain

import (
	"github.com/oraculum-network/oraculum/types"
)

// splitBlocksBatchAtTarget splits a received blocks batch into four parts:
//   - part1: the blocks up to the last epoch covered by the target superblock
//   - part2: the blocks needed to create the superblock with index target+1
//   - part3: the remaining blocks usable for superblock target+2
//   - part4: blocks above superblock target+2, which this batch cannot
//     consolidate; a new sync cycle picks them up
//
// A part is non-nil but empty when the preceding part ended exactly at its
// boundary: that signals that nothing further is needed to close the
// corresponding superblock. nextIndex is nil when the current epoch falls
// inside the target superblock window, otherwise it is the index of the
// superblock the node should construct next.
//
// Assumes the blocks are sorted by epoch, no two blocks share an epoch, and
// the superblock period is at least 1.
func splitBlocksBatchAtTarget(
	blocks []*types.Block,
	epoch types.Epoch,
	syncTarget *types.SyncTarget,
	superblockPeriod uint32,
) (part1 []*types.Block, part2, part3, part4 []*types.Block, part2OK, part3OK, part4OK bool, nextIndex *uint32) {
	firstEpochPart2 := syncTarget.Superblock.Checkpoint * superblockPeriod
	firstEpochPart3 := (syncTarget.Superblock.Checkpoint + 1) * superblockPeriod
	firstEpochPart4 := (syncTarget.Superblock.Checkpoint + 2) * superblockPeriod
	log.WithField("part2Start", firstEpochPart2).WithField("part3Start", firstEpochPart3).
		Debug("Splitting blocks batch at superblock boundaries")

	part1 = blocks

	if i := positionAtOrAbove(part1, firstEpochPart2); i >= 0 {
		part1, part2, part2OK = part1[:i], part1[i:], true
		if j := positionAtOrAbove(part2, firstEpochPart3); j >= 0 {
			part2, part3, part3OK = part2[:j], part2[j:], true
			if k := positionAtOrAbove(part3, firstEpochPart4); k >= 0 {
				part3, part4, part4OK = part3[:k], part3[k:], true
			}
		}
	}

	// If a part ends exactly one epoch short of the next boundary, the next
	// part must exist (empty) rather than be absent: the superblock it
	// closes can already be constructed.
	if !part2OK && endsAt(part1, firstEpochPart2-1) {
		part2, part2OK = []*types.Block{}, true
	}
	if part2OK && !part3OK && endsAt(part2, firstEpochPart3-1) {
		part3, part3OK = []*types.Block{}, true
	}
	if part3OK && !part4OK && endsAt(part3, firstEpochPart4-1) {
		part4, part4OK = []*types.Block{}, true
	}

	if epoch/superblockPeriod != syncTarget.Superblock.Checkpoint {
		idx := epoch / superblockPeriod
		nextIndex = &idx
	}

	return part1, part2, part3, part4, part2OK, part3OK, part4OK, nextIndex
}

// positionAtOrAbove returns the index of the first block whose epoch is >=
// the threshold, or -1.
func positionAtOrAbove(blocks []*types.Block, threshold types.Epoch) int {
	for i, b := range blocks {
		if b.Epoch() >= threshold {
			return i
		}
	}
	return -1
}

// endsAt reports whether the last block of the part sits exactly at the
// given epoch.
func endsAt(blocks []*types.Block, epoch types.Epoch) bool {
	return len(blocks) > 0 && blocks[len(blocks)-1].Epoch() == epoch
}
