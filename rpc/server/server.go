package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/VictoriaMetrics/metrics"
	"github.com/crmvault/crmvault/lib/kv"
	"github.com/crmvault/crmvault/lib/kv/engines/memkv"
	"github.com/crmvault/crmvault/lib/kv/engines/sqlitekv"
	"github.com/crmvault/crmvault/lib/vault"
	"github.com/crmvault/crmvault/rpc/common"
	"github.com/crmvault/crmvault/rpc/serializer"
	"github.com/crmvault/crmvault/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a struct that represents a shard in the RPC server
// It contains the resources it encapsulates and the adapter that handles
// requests for them
type serverShard struct {
	Env     ShardEnv
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// Create shards map
	shardMap := xsync.NewMapOf[uint64, serverShard]()

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     shardMap,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Get appropriate shard
		shard, ok := s.shards.Load(shardId)

		// Case shard does not exist -> error
		if !ok {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "shard not found",
			}
		} else {
			// Decode the request
			err := s.serializer.Deserialize(req, &msg)

			if err != nil {
				respMsg = common.Message{
					MsgType: common.MsgTError,
					Err:     fmt.Sprintf("failed to deserialize request: %s", err),
				}
			} else {
				metrics.GetOrCreateCounter(
					fmt.Sprintf(`crmvault_rpc_requests_total{type=%q}`, msg.MsgType)).Inc()

				// Let the adapter handle the request
				respMsg = *shard.Adapter.Handle(&msg, shard.Env)
			}
		}

		if respMsg.Err != "" {
			metrics.GetOrCreateCounter(
				fmt.Sprintf(`crmvault_rpc_errors_total{type=%q}`, respMsg.MsgType)).Inc()
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			Logger.Errorf("failed to serialize response: %s", err)
			val, _ = s.serializer.Serialize(*common.NewErrorResponse(
				fmt.Sprintf("failed to serialize response: %s", err)))
		}
		return val
	})
}

func (s *rpcServer) init() error {

	// Init loggers
	common.InitLoggers(s.config.LogLevel)

	// CREATE SHARDS

	/*
		Note: A single RPC server can serve any number of shards. Each shard
		owns its own store and exposes it either raw (store shard) or behind
		the vault engine (vault shard). The following loop creates all the
		shards and registers them with the RPC server.
	*/

	for _, shardConfig := range s.config.Shards {
		store, err := s.newStore(shardConfig.ShardID)
		if err != nil {
			return fmt.Errorf("failed to create store for shard %d: %w", shardConfig.ShardID, err)
		}
		s.loadSnapshot(shardConfig.ShardID, store)

		switch shardConfig.Type {
		case common.ShardTypeStore:
			s.shards.Store(shardConfig.ShardID, serverShard{
				Env:     ShardEnv{Store: store},
				Adapter: NewStoreServerAdapter(),
			})
			Logger.Infof("created store shard %d", shardConfig.ShardID)

		case common.ShardTypeVault:
			s.shards.Store(shardConfig.ShardID, serverShard{
				Env:     ShardEnv{Store: store, Vault: vault.New(store, nil)},
				Adapter: NewVaultServerAdapter(),
			})
			Logger.Infof("created vault shard %d", shardConfig.ShardID)

		default:
			return fmt.Errorf("invalid shard type: %s", shardConfig.Type)
		}
	}

	// Serve metrics if configured
	if s.config.MetricsEndpoint != "" {
		go func() {
			http.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
				metrics.WritePrometheus(w, true)
			})
			Logger.Infof("Starting metrics server on %s", s.config.MetricsEndpoint)
			if err := http.ListenAndServe(s.config.MetricsEndpoint, nil); err != nil {
				Logger.Errorf("metrics server failed: %v", err)
			}
		}()
	}

	// Save snapshots on shutdown
	go s.handleSignals()

	Logger.Infof("vault server setup completed successfully")

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// newStore creates the storage engine for one shard
func (s *rpcServer) newStore(shardID uint64) (kv.IDocumentStore, error) {
	switch s.config.Engine {
	case "", "memory":
		return memkv.NewMemStore(), nil
	case "sqlite":
		dataDir := s.config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		path := filepath.Join(dataDir, fmt.Sprintf("shard-%d.db", shardID))
		return sqlitekv.NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown storage engine %q (must be memory or sqlite)", s.config.Engine)
	}
}

// snapshotPath names the snapshot file of one shard
func (s *rpcServer) snapshotPath(shardID uint64) string {
	return fmt.Sprintf("%s.%d", s.config.Snapshot, shardID)
}

// loadSnapshot restores a shard's store from its snapshot file, if both the
// file and the engine's Load support exist
func (s *rpcServer) loadSnapshot(shardID uint64, store kv.IDocumentStore) {
	if s.config.Snapshot == "" || !store.SupportsFeature(kv.FeatureLoad) {
		return
	}

	path := s.snapshotPath(shardID)
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			Logger.Warningf("failed to open snapshot %q: %v", path, err)
		}
		return
	}
	defer f.Close()

	if err := store.Load(f); err != nil {
		Logger.Errorf("failed to load snapshot %q: %v", path, err)
		return
	}
	Logger.Infof("restored shard %d from snapshot %q", shardID, path)
}

// saveSnapshots persists every shard whose engine supports Save
func (s *rpcServer) saveSnapshots() {
	if s.config.Snapshot == "" {
		return
	}

	s.shards.Range(func(shardID uint64, shard serverShard) bool {
		if !shard.Env.Store.SupportsFeature(kv.FeatureSave) {
			return true
		}

		path := s.snapshotPath(shardID)
		f, err := os.Create(path)
		if err != nil {
			Logger.Errorf("failed to create snapshot %q: %v", path, err)
			return true
		}
		defer f.Close()

		if err := shard.Env.Store.Save(f); err != nil {
			Logger.Errorf("failed to save snapshot %q: %v", path, err)
			return true
		}
		Logger.Infof("saved shard %d to snapshot %q", shardID, path)
		return true
	})
}

// handleSignals saves snapshots and exits on SIGINT/SIGTERM
func (s *rpcServer) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	Logger.Infof("received %s, shutting down", sig)
	s.saveSnapshots()
	os.Exit(0)
}
