// Package client implements RPC clients for the CRM vault. It provides
// implementations of the kv.IDocumentStore and vault.IVault interfaces that
// communicate with remote servers via RPC.
//
// The package focuses on:
//   - Transparent remote access to store and vault implementations
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing
//     kv.IDocumentStore. A lock manager or vault built on this store runs
//     the full lock protocol from the client side, so several remote writers
//     cooperate exactly as several local processes would. Subscribe and the
//     snapshot operations are not available over RPC; SupportsFeature
//     reports this and the methods return RetCUnsupportedOperation.
//
//   - NewRPCVault: Factory function that creates a client implementing
//     vault.IVault against a vault shard. The server runs the lock protocol,
//     so this is the deployment that closes the check-then-set window.
//     Vault failure codes survive the wire, so CodeOf works on returned
//     errors exactly as it does locally.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:              []string{"localhost:5000"},
//	  TimeoutSecond:          5,
//	  RetryCount:             3,
//	  ConnectionsPerEndpoint: 1,
//	}
//
//	s := serializer.NewBinarySerializer()
//
//	// Raw store access (client-side lock protocol)
//	store, _ := client.NewRPCStore(1, config, tcp.NewTCPClientTransport(), s)
//	v := vault.New(store, nil)
//
//	// Server-side lock protocol
//	rv, _ := client.NewRPCVault(2, config, tcp.NewTCPClientTransport(), s)
//	inserted, _ := rv.InsertWithDedup(records.EntityContacts, batch)
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently
//	from multiple goroutines without additional synchronization.
package client
