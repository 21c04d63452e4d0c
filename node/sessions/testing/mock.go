// Package testing includes a mock sessions gateway for chain manager tests.
package testing

import (
	"sync"

	"github.com/oraculum-network/oraculum/node/sessions"
	"github.com/oraculum-network/oraculum/types"
)

// MockGateway records every command the chain manager issues.
type MockGateway struct {
	mu sync.Mutex

	LastBeacons  []types.LastBeacon
	Broadcasts   []sessions.Command
	InboundOnly  []bool
	Anycasts     []sessions.Command
	Unregistered [][]string
}

// SetLastBeacon implements sessions.Gateway.
func (m *MockGateway) SetLastBeacon(beacon types.LastBeacon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastBeacons = append(m.LastBeacons, beacon)
}

// Broadcast implements sessions.Gateway.
func (m *MockGateway) Broadcast(cmd sessions.Command, onlyInbound bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Broadcasts = append(m.Broadcasts, cmd)
	m.InboundOnly = append(m.InboundOnly, onlyInbound)
}

// Anycast implements sessions.Gateway.
func (m *MockGateway) Anycast(cmd sessions.Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Anycasts = append(m.Anycasts, cmd)
}

// Unregister implements sessions.Gateway.
func (m *MockGateway) Unregister(addrs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unregistered = append(m.Unregistered, addrs)
}

// BatchRequests returns the GetBlocks commands issued so far.
func (m *MockGateway) BatchRequests() []sessions.GetBlocks {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sessions.GetBlocks
	for _, cmd := range m.Anycasts {
		if gb, ok := cmd.(sessions.GetBlocks); ok {
			out = append(out, gb)
		}
	}
	return out
}
