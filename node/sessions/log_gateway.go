package sessions

import (
	"github.com/sirupsen/logrus"

	"github.com/oraculum-network/oraculum/types"
)

var log = logrus.WithField("prefix", "sessions")

// LoggingGateway is the gateway the node wires until a network transport
// registers itself: commands are logged and dropped. It keeps the chain
// manager fully functional in isolation, which is also what the end-to-end
// tests run against.
type LoggingGateway struct{}

// SetLastBeacon implements Gateway.
func (LoggingGateway) SetLastBeacon(beacon types.LastBeacon) {
	log.WithField("block", beacon.HighestBlockCheckpoint).
		WithField("superblock", beacon.HighestSuperblockCheckpoint).
		Debug("Last beacon updated")
}

// Broadcast implements Gateway.
func (LoggingGateway) Broadcast(cmd Command, onlyInbound bool) {
	log.WithField("command", commandName(cmd)).WithField("onlyInbound", onlyInbound).
		Debug("Broadcast dropped: no transport registered")
}

// Anycast implements Gateway.
func (LoggingGateway) Anycast(cmd Command) {
	log.WithField("command", commandName(cmd)).
		Debug("Anycast dropped: no transport registered")
}

// Unregister implements Gateway.
func (LoggingGateway) Unregister(addrs []string) {
	log.WithField("peers", addrs).Debug("Unregister dropped: no transport registered")
}

func commandName(cmd Command) string {
	switch cmd.(type) {
	case SendLastBeacon:
		return "SendLastBeacon"
	case SendTransaction:
		return "SendTransaction"
	case SendSuperBlockVote:
		return "SendSuperBlockVote"
	case SendBlock:
		return "SendBlock"
	case GetBlocks:
		return "GetBlocks"
	default:
		return "Unknown"
	}
}
