package serve

import (
	"fmt"
	"strconv"
	"strings"

	cmdUtil "github.com/crmvault/crmvault/cmd/util"
	"github.com/crmvault/crmvault/rpc/common"
	"github.com/crmvault/crmvault/rpc/serializer"
	"github.com/crmvault/crmvault/rpc/server"
	"github.com/crmvault/crmvault/rpc/transport"
	"github.com/crmvault/crmvault/rpc/transport/http"
	"github.com/crmvault/crmvault/rpc/transport/tcp"
	"github.com/crmvault/crmvault/rpc/transport/unix"
	"github.com/crmvault/crmvault/rpc/transport/ws"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the crmvault server",
		Long:    `Start the crmvault server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is CRMVAULT_<flag> (e.g. CRMVAULT_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "shards"
	ServeCmd.PersistentFlags().String(key, "100=store,200=vault", cmdUtil.WrapString("Comma-separated list of shards to serve. Format: ID=TYPE where TYPE is one of: store, vault"))

	key = "engine"
	ServeCmd.PersistentFlags().String(key, "memory", cmdUtil.WrapString("Storage engine backing the shards (memory, sqlite)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("Directory used for sqlite databases and snapshots"))

	key = "snapshot"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Snapshot file loaded on start and written on shutdown (memory engine only, empty disables snapshots)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/crmvault.sock, ...)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address on which Prometheus metrics are served (empty disables the metrics listener)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "transport-write-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("The size of the write buffer for the transport (in KB, ignored for http and ws)"))

	key = "transport-read-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("The size of the read buffer for the transport (in KB, ignored for http and ws)"))

	key = "transport-tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY for the transport (tcp only)"))

	key = "transport-tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval for the transport (in seconds, tcp only)"))

	key = "transport-tcp-linger"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The linger time for the transport (in seconds, tcp only)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse shards
	shardsConfig := viper.GetString("shards")
	serveCmdConfig.Shards = []common.ServerShard{}
	for _, shardConfig := range strings.Split(shardsConfig, ",") {
		parts := strings.Split(shardConfig, "=")
		if len(parts) != 2 {
			return fmt.Errorf("invalid shard format: %s (expected ID=TYPE)", shardConfig)
		}

		// Parse shard ID
		shardID, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard ID %s: %v", parts[0], err)
		}

		// Parse shard type
		var serverShardType common.ServerShardType
		switch strings.TrimSpace(parts[1]) {
		case "store":
			serverShardType = common.ShardTypeStore
		case "vault":
			serverShardType = common.ShardTypeVault
		default:
			return fmt.Errorf("invalid shard type: %s (expected one of: store, vault)", parts[1])
		}

		serveCmdConfig.Shards = append(serveCmdConfig.Shards, common.ServerShard{
			ShardID: shardID,
			Type:    serverShardType,
		})
	}

	// validate the engine
	engine := viper.GetString("engine")
	if engine != "memory" && engine != "sqlite" {
		return fmt.Errorf("invalid engine: %s (expected one of: memory, sqlite)", engine)
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Engine = engine
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.Snapshot = viper.GetString("snapshot")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.WriteBufferSize = viper.GetInt("transport-write-buffer") * 1024
	serveCmdConfig.ReadBufferSize = viper.GetInt("transport-read-buffer") * 1024
	serveCmdConfig.TCPNoDelay = viper.GetBool("transport-tcp-nodelay")
	serveCmdConfig.TCPKeepAliveSec = viper.GetInt("transport-tcp-keepalive")
	serveCmdConfig.TCPLingerSec = viper.GetInt("transport-tcp-linger")

	return nil
}

// run starts the crmvault server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	var s serializer.IRPCSerializer
	switch viper.GetString("serializer") {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	case "binary":
		s = serializer.NewBinarySerializer()
	default:
		return fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPServerTransport()
	case "unix":
		t = unix.NewUnixServerTransport()
	case "ws":
		t = ws.NewWSServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("crmvault")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
