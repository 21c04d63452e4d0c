package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/oraculum-network/oraculum/node/chain"
	"github.com/oraculum-network/oraculum/node/sessions"
	storagetest "github.com/oraculum-network/oraculum/node/storage/testing"
	"github.com/oraculum-network/oraculum/shared/testutil/assert"
	"github.com/oraculum-network/oraculum/shared/testutil/require"
	"github.com/oraculum-network/oraculum/types"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	constants := types.TestnetConsensusConstants()
	chainService, err := chain.NewService(context.Background(), &chain.Config{
		DB:      storagetest.SetupDB(t),
		Gateway: sessions.LoggingGateway{},
		ChainInfo: &types.ChainInfo{
			Environment:        "testnet",
			ConsensusConstants: constants,
			HighestBlockCheckpoint: types.CheckpointBeacon{
				HashPrevBlock: constants.BootstrapHash,
			},
		},
		ConsensusThreshold: 60,
		TxPendingTimeout:   time.Minute,
	})
	require.NoError(t, err)
	chainService.Start()
	t.Cleanup(func() {
		require.NoError(t, chainService.Stop())
	})

	server := httptest.NewServer(NewService(&Config{Addr: "127.0.0.1:0", Chain: chainService}).Handler())
	t.Cleanup(server.Close)
	return server
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	if out != nil {
		require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestStateEndpoint(t *testing.T) {
	server := testServer(t)

	var snapshot chain.Snapshot
	status := getJSON(t, server.URL+"/api/v1/state", &snapshot)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, chain.WaitingConsensus, snapshot.State)
	assert.Equal(t, "testnet", snapshot.Environment)
}

func TestBeaconEndpoint(t *testing.T) {
	server := testServer(t)

	var beacon types.CheckpointBeacon
	status := getJSON(t, server.URL+"/api/v1/beacon", &beacon)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, types.TestnetConsensusConstants().BootstrapHash, beacon.HashPrevBlock)
}

func TestNotSyncedQueriesReturn503(t *testing.T) {
	server := testServer(t)

	pkh := types.PublicKeyHash{0x01}
	var body struct {
		Error string `json:"error"`
		State string `json:"state"`
	}
	status := getJSON(t, server.URL+"/api/v1/balance/"+pkh.String(), &body)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "WaitingConsensus", body.State)
}

func TestDataRequestNotFoundReturns404(t *testing.T) {
	server := testServer(t)

	hash := types.Hash{0xaa}
	status := getJSON(t, server.URL+"/api/v1/dataRequest/"+hash.String(), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBadHashReturns400(t *testing.T) {
	server := testServer(t)

	status := getJSON(t, server.URL+"/api/v1/dataRequest/nonsense", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMempoolEndpoint(t *testing.T) {
	server := testServer(t)

	var mempool chain.GetMempoolResult
	status := getJSON(t, server.URL+"/api/v1/mempool", &mempool)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, len(mempool.ValueTransfer))
	assert.Equal(t, 0, len(mempool.DataRequest))
}
