// Package flags defines the command line flags specific to the full node.
package flags

import (
	"time"

	"github.com/urfave/cli/v2"
)

var (
	// NetworkFlag selects the consensus constants preset.
	NetworkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "Network to join (mainnet, testnet)",
		Value: "mainnet",
	}
	// RPCHost defines the address on which the query API listens.
	RPCHost = &cli.StringFlag{
		Name:  "rpc-host",
		Usage: "Host on which the RPC server should listen",
		Value: "127.0.0.1",
	}
	// RPCPort defines the port on which the query API listens.
	RPCPort = &cli.IntFlag{
		Name:  "rpc-port",
		Usage: "RPC port exposed by the node",
		Value: 21338,
	}
	// MiningEnabledFlag toggles block and data request mining.
	MiningEnabledFlag = &cli.BoolFlag{
		Name:  "mine",
		Usage: "Enable block and data request mining",
		Value: true,
	}
	// SecretKeyFileFlag points at the node's secp256k1 secret key.
	SecretKeyFileFlag = &cli.StringFlag{
		Name:  "secret-key-file",
		Usage: "Path to a file holding the node's hex-encoded secp256k1 secret key",
	}
	// ConsensusThresholdFlag is the percentage of outbound peers that must
	// agree on a beacon for consensus.
	ConsensusThresholdFlag = &cli.IntFlag{
		Name:  "consensus-threshold",
		Usage: "Percentage of outbound peers that must agree for beacon consensus",
		Value: 60,
	}
	// OutboundLimitFlag is the number of outbound peer slots.
	OutboundLimitFlag = &cli.IntFlag{
		Name:  "outbound-limit",
		Usage: "Number of outbound peer connections to maintain",
		Value: 8,
	}
	// TxPendingTimeoutFlag bounds how long built transactions reserve their
	// inputs while unconfirmed.
	TxPendingTimeoutFlag = &cli.DurationFlag{
		Name:  "tx-pending-timeout",
		Usage: "How long unconfirmed transactions keep their inputs reserved",
		Value: 10 * time.Minute,
	}
)
