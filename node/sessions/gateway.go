// Package sessions defines the narrow surface the chain manager uses to talk
// to the peer session layer. The session registry itself (dialing, handshake,
// bucketing) lives behind this interface; the chain manager only advertises
// beacons, broadcasts commands and severs peers.
package sessions

import (
	"github.com/oraculum-network/oraculum/types"
)

// Command is a message broadcast to peer sessions. The wire rendering of a
// command is the codec's concern, not the chain manager's.
type Command interface{}

// SendLastBeacon advertises our chain tips.
type SendLastBeacon struct {
	LastBeacon types.LastBeacon
}

// SendTransaction gossips a transaction.
type SendTransaction struct {
	Transaction types.Transaction
}

// SendSuperBlockVote gossips a superblock vote.
type SendSuperBlockVote struct {
	Vote *types.SuperBlockVote
}

// SendBlock gossips a block candidate.
type SendBlock struct {
	Block *types.Block
}

// GetBlocks asks a peer for the batch of blocks after the given beacon.
type GetBlocks struct {
	Beacon types.CheckpointBeacon
}

// Gateway is the command surface of the session layer.
//
// PeersBeacons snapshots flow in the opposite direction: the session layer
// delivers one per epoch to the chain manager.
type Gateway interface {
	// SetLastBeacon updates the beacon that outbound handshakes advertise.
	SetLastBeacon(beacon types.LastBeacon)
	// Broadcast sends the command to all sessions, or to inbound sessions
	// only.
	Broadcast(cmd Command, onlyInbound bool)
	// Anycast sends the command to one consolidated outbound session.
	Anycast(cmd Command)
	// Unregister severs the listed peer sessions.
	Unregister(addrs []string)
}
