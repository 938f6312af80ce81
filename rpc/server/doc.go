// Package server implements the RPC server for the CRM vault. It provides
// adapters for handling RPC requests against both the raw document store and
// the vault engine, along with the core server implementation that manages
// shards and request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for store and vault operations
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Flexible shard configuration mixing store and vault shards
//   - Dynamic creation of storage engines based on shard configuration
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server
//     adapters, with the Handle method that processes incoming requests
//     against the shard's resources.
//
//   - NewStoreServerAdapter: Factory function creating an adapter for raw
//     key-value operations. Clients using a store shard run the full lock
//     protocol themselves, so multiple writing clients cooperate exactly as
//     multiple local processes would.
//
//   - NewVaultServerAdapter: Factory function creating an adapter for vault
//     operations. The serving process owns the lock protocol, which removes
//     the client-side check-then-set window entirely.
//
//   - NewRPCServer: Factory function creating a configured server with the
//     specified transport and serializer mechanisms.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Shards: []common.ServerShard{
//	    {ShardID: 100, Type: common.ShardTypeStore},
//	    {ShardID: 200, Type: common.ShardTypeVault},
//	  },
//	  Engine:        "memory",
//	  Endpoint:      "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent
//	requests across multiple connections. Each request is processed
//	independently. The Serve method should be called only once.
package server
