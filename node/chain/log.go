package chain

import (
	"github.com/sirupsen/logrus"

	"github.com/oraculum-network/oraculum/types"
)

var log = logrus.WithField("prefix", "chain")

const syncedBanner = `
███████╗██╗   ██╗███╗   ██╗ ██████╗███████╗██████╗ ██╗
██╔════╝╚██╗ ██╔╝████╗  ██║██╔════╝██╔════╝██╔══██╗██║
███████╗ ╚████╔╝ ██╔██╗ ██║██║     █████╗  ██║  ██║██║
╚════██║  ╚██╔╝  ██║╚██╗██║██║     ██╔══╝  ██║  ██║╚═╝
███████║   ██║   ██║ ╚████║╚██████╗███████╗██████╔╝██╗
╚══════╝   ╚═╝   ╚═╝  ╚═══╝ ╚═════╝╚══════╝╚═════╝ ╚═╝`

// logConsolidatedBlock logs the transaction counts of a freshly consolidated
// block, skipping empty sections.
func logConsolidatedBlock(block *types.Block, hash types.Hash) {
	entry := log.WithField("epoch", block.Epoch()).WithField("block", hash)
	if n := len(block.Txns.ValueTransferTxns); n > 0 {
		entry = entry.WithField("valueTransfers", n)
	}
	if n := len(block.Txns.DataRequestTxns); n > 0 {
		entry = entry.WithField("dataRequests", n)
	}
	if n := len(block.Txns.CommitTxns); n > 0 {
		entry = entry.WithField("commits", n)
	}
	if n := len(block.Txns.RevealTxns); n > 0 {
		entry = entry.WithField("reveals", n)
	}
	if n := len(block.Txns.TallyTxns); n > 0 {
		entry = entry.WithField("tallies", n)
	}
	entry.Info("Consolidated block")
}
