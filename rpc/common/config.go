package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerShardType selects what a shard serves.
type ServerShardType string

const (
	// ShardTypeStore exposes the raw document store. Clients run the full
	// lock protocol themselves, so several clients may write concurrently.
	ShardTypeStore ServerShardType = "store"

	// ShardTypeVault exposes vault operations. The serving process owns the
	// lock protocol, which removes the client-side check-then-set window.
	ShardTypeVault ServerShardType = "vault"
)

// ServerShard maps one shard ID to the service it exposes.
type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Type selects the adapter for the shard
	Type ServerShardType
}

// ServerConfig holds all configuration parameters for the serving process.
type ServerConfig struct {
	// Shards served by this process
	Shards []ServerShard

	// Storage engine parameters
	Engine   string // "memory" or "sqlite"
	DataDir  string // Directory for sqlite databases and snapshots
	Snapshot string // Optional snapshot file loaded on start, written on demand

	// Network settings
	Endpoint      string
	TimeoutSecond int64

	// Transport tuning (TCP only, zero values leave OS defaults)
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	ReadBufferSize  int
	WriteBufferSize int

	// Metrics endpoint ("" disables the Prometheus listener)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// HasVaultShard checks if the configuration contains any vault shards
func (c *ServerConfig) HasVaultShard() bool {
	for _, shard := range c.Shards {
		if shard.Type == ShardTypeVault {
			return true
		}
	}
	return false
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	// Storage
	addSection("Storage")
	addField("Engine", c.Engine)
	if c.DataDir != "" {
		addField("Data Directory", c.DataDir)
	}
	if c.Snapshot != "" {
		addField("Snapshot File", c.Snapshot)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Shards
	addSection("Shards")
	for _, shard := range c.Shards {
		addField(strconv.FormatUint(shard.ShardID, 10), string(shard.Type))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
