// Package node defines the life cycle of the full node: it assembles the
// storage, chain manager, RPC and monitoring services into a registry and
// runs them.
package node

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/oraculum-network/oraculum/node/chain"
	"github.com/oraculum-network/oraculum/node/epochs"
	"github.com/oraculum-network/oraculum/node/flags"
	"github.com/oraculum-network/oraculum/node/rpc"
	"github.com/oraculum-network/oraculum/node/sessions"
	"github.com/oraculum-network/oraculum/node/storage"
	"github.com/oraculum-network/oraculum/shared"
	"github.com/oraculum-network/oraculum/shared/cmd"
	"github.com/oraculum-network/oraculum/shared/prometheus"
	"github.com/oraculum-network/oraculum/types"
)

var log = logrus.WithField("prefix", "node")

// OraculumNode handles the lifecycle of the entire system and registers
// services to a service registry.
type OraculumNode struct {
	cliCtx   *cli.Context
	services *shared.ServiceRegistry
	lock     sync.RWMutex
	db       *storage.Store
	stop     chan struct{} // Channel to wait for termination notifications.
}

// New creates a new node instance, sets up configuration options and
// registers every required service.
func New(cliCtx *cli.Context) (*OraculumNode, error) {
	registry := shared.NewServiceRegistry()

	node := &OraculumNode{
		cliCtx:   cliCtx,
		services: registry,
		stop:     make(chan struct{}),
	}

	if err := node.startDB(); err != nil {
		return nil, err
	}

	if err := node.registerChainService(); err != nil {
		return nil, err
	}

	if err := node.registerRPCService(); err != nil {
		return nil, err
	}

	if !cliCtx.Bool(cmd.DisableMonitoringFlag.Name) {
		if err := node.registerPrometheusService(); err != nil {
			return nil, err
		}
	}

	return node, nil
}

// Start the node and kick off every registered service.
func (n *OraculumNode) Start() {
	n.lock.Lock()

	log.Info("Starting oraculum node")

	n.services.StartAll()

	stop := n.stop
	n.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go n.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the oraculum node")
	}()

	// Wait for stop channel to be closed.
	<-stop
}

// Close handles graceful shutdown of the system.
func (n *OraculumNode) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.services.StopAll()
	if err := n.db.Close(); err != nil {
		log.WithError(err).Error("Failed to close database")
	}
	log.Info("Stopping oraculum node")
	close(n.stop)
}

func (n *OraculumNode) startDB() error {
	dataDir := n.cliCtx.String(cmd.DataDirFlag.Name)
	if n.cliCtx.Bool(cmd.ForceClearDB.Name) {
		tmp, err := storage.NewKVStore(dataDir)
		if err != nil {
			return err
		}
		if err := tmp.ClearDB(); err != nil {
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}
		log.Warning("Removing database")
	}
	db, err := storage.NewKVStore(dataDir)
	if err != nil {
		return errors.Wrap(err, "could not open database")
	}
	n.db = db
	return nil
}

func (n *OraculumNode) registerChainService() error {
	constants, err := consensusConstantsFor(n.cliCtx.String(flags.NetworkFlag.Name))
	if err != nil {
		return err
	}
	chainInfo := &types.ChainInfo{
		Environment:        n.cliCtx.String(flags.NetworkFlag.Name),
		ConsensusConstants: constants,
		HighestBlockCheckpoint: types.CheckpointBeacon{
			HashPrevBlock: constants.BootstrapHash,
		},
	}

	var secretKey *btcec.PrivateKey
	if keyFile := n.cliCtx.String(flags.SecretKeyFileFlag.Name); keyFile != "" {
		secretKey, err = loadSecretKey(keyFile)
		if err != nil {
			return errors.Wrap(err, "could not load secret key")
		}
	}

	epochConstants := epochs.NewConstants(constants)
	chainService, err := chain.NewService(context.Background(), &chain.Config{
		DB:                 n.db,
		Gateway:            sessions.LoggingGateway{},
		ChainInfo:          chainInfo,
		Ticker:             epochs.NewTicker(epochConstants),
		MiningEnabled:      n.cliCtx.Bool(flags.MiningEnabledFlag.Name),
		ConsensusThreshold: n.cliCtx.Int(flags.ConsensusThresholdFlag.Name),
		TxPendingTimeout:   n.cliCtx.Duration(flags.TxPendingTimeoutFlag.Name),
		SecretKey:          secretKey,
	})
	if err != nil {
		return err
	}
	return n.services.RegisterService(chainService)
}

func (n *OraculumNode) registerRPCService() error {
	var chainService *chain.Service
	if err := n.services.FetchService(&chainService); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", n.cliCtx.String(flags.RPCHost.Name), n.cliCtx.Int(flags.RPCPort.Name))
	return n.services.RegisterService(rpc.NewService(&rpc.Config{
		Addr:  addr,
		Chain: chainService,
	}))
}

func (n *OraculumNode) registerPrometheusService() error {
	service := prometheus.NewService(
		fmt.Sprintf(":%d", n.cliCtx.Int64(cmd.MonitoringPortFlag.Name)),
		n.services,
	)
	return n.services.RegisterService(service)
}

func consensusConstantsFor(network string) (types.ConsensusConstants, error) {
	switch strings.ToLower(network) {
	case "mainnet":
		return types.MainnetConsensusConstants(), nil
	case "testnet":
		return types.TestnetConsensusConstants(), nil
	default:
		return types.ConsensusConstants{}, errors.Errorf("unknown network %q", network)
	}
}

func loadSecretKey(path string) (*btcec.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, err
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), keyBytes)
	return priv, nil
}
