// Package rpc exposes the read-only query surface of the node over HTTP.
// Mutating operations (transaction building) stay on the wallet surface and
// are not served here.
package rpc

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/oraculum-network/oraculum/node/chain"
	"github.com/oraculum-network/oraculum/types"
)

var log = logrus.WithField("prefix", "rpc")

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Config options for the RPC service.
type Config struct {
	Addr  string
	Chain *chain.Service
}

// Service serves the chain queries over HTTP.
type Service struct {
	cfg        *Config
	server     *http.Server
	failStatus error
}

// NewService wires the router.
func NewService(cfg *Config) *Service {
	s := &Service{cfg: cfg}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/beacon", s.handleBeacon).Methods(http.MethodGet)
	api.HandleFunc("/blocks", s.handleBlocks).Methods(http.MethodGet)
	api.HandleFunc("/mempool", s.handleMempool).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/superblock/votes", s.handleSuperblockVotes).Methods(http.MethodGet)
	api.HandleFunc("/dataRequest/{hash}", s.handleDataRequestReport).Methods(http.MethodGet)
	api.HandleFunc("/balance/{pkh}", s.handleBalance).Methods(http.MethodGet)
	api.HandleFunc("/utxos/{pkh}", s.handleUtxoInfo).Methods(http.MethodGet)
	api.HandleFunc("/reputation", s.handleReputationAll).Methods(http.MethodGet)
	api.HandleFunc("/reputation/status", s.handleReputationStatus).Methods(http.MethodGet)
	api.HandleFunc("/reputation/{pkh}", s.handleReputation).Methods(http.MethodGet)

	handler := cors.Default().Handler(r)
	s.server = &http.Server{Addr: cfg.Addr, Handler: handler}
	return s
}

// Start the HTTP listener.
func (s *Service) Start() {
	go func() {
		log.WithField("address", s.server.Addr).Info("Serving chain queries")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Could not serve RPC")
			s.failStatus = err
		}
	}()
}

// Stop shuts the listener down gracefully.
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status reports listener failures.
func (s *Service) Status() error {
	return s.failStatus
}

// Handler exposes the routed handler, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Chain.GetSnapshot())
}

func (s *Service) handleBeacon(w http.ResponseWriter, _ *http.Request) {
	beacon, err := s.cfg.Chain.GetHighestBlockCheckpoint()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, beacon)
}

func (s *Service) handleBlocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start := parseEpoch(q.Get("start"), 0)
	end := parseEpoch(q.Get("end"), ^types.Epoch(0))
	limit, _ := strconv.Atoi(q.Get("limit"))
	fromEnd := q.Get("fromEnd") == "true"
	writeJSON(w, http.StatusOK, s.cfg.Chain.GetBlocksEpochRange(start, end, limit, fromEnd))
}

func (s *Service) handleMempool(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Chain.GetMempool())
}

func (s *Service) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Chain.GetNodeStats())
}

func (s *Service) handleSuperblockVotes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Chain.GetSuperBlockVotes())
}

func (s *Service) handleDataRequestReport(w http.ResponseWriter, r *http.Request) {
	hash, err := types.HashFromString(mux.Vars(r)["hash"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	report, err := s.cfg.Chain.GetDataRequestReport(r.Context(), hash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Service) handleBalance(w http.ResponseWriter, r *http.Request) {
	pkh, ok := parsePKH(w, r)
	if !ok {
		return
	}
	balance, err := s.cfg.Chain.GetBalance(pkh)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func (s *Service) handleUtxoInfo(w http.ResponseWriter, r *http.Request) {
	pkh, ok := parsePKH(w, r)
	if !ok {
		return
	}
	info, err := s.cfg.Chain.GetUtxoInfo(pkh)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Service) handleReputation(w http.ResponseWriter, r *http.Request) {
	pkh, ok := parsePKH(w, r)
	if !ok {
		return
	}
	rep, active, err := s.cfg.Chain.GetReputation(pkh)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chain.ReputationEntry{Reputation: rep, Active: active})
}

func (s *Service) handleReputationAll(w http.ResponseWriter, _ *http.Request) {
	all, err := s.cfg.Chain.GetReputationAll()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make(map[string]chain.ReputationEntry, len(all))
	for pkh, entry := range all {
		out[pkh.String()] = entry
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleReputationStatus(w http.ResponseWriter, _ *http.Request) {
	status, err := s.cfg.Chain.GetReputationStatus()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type errorBody struct {
	Error string `json:"error"`
	State string `json:"state,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case chain.NotSyncedError:
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: e.Error(), State: e.CurrentState.String()})
		return
	}
	switch err {
	case chain.ErrDataRequestNotFound, chain.ErrTransactionNotFound:
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case chain.ErrChainNotReady, chain.ErrChainInfoNotFound:
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonCodec.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Could not encode response")
	}
}

func parseEpoch(s string, fallback types.Epoch) types.Epoch {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fallback
	}
	return types.Epoch(v)
}

func parsePKH(w http.ResponseWriter, r *http.Request) (types.PublicKeyHash, bool) {
	var pkh types.PublicKeyHash
	if err := pkh.UnmarshalText([]byte(mux.Vars(r)["pkh"])); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return pkh, false
	}
	return pkh, true
}
