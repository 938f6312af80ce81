// Package http implements an HTTP-based transport layer for RPC
// communication in the CRM vault. It provides concrete implementations of
// the transport interfaces defined in the parent package, enabling
// communication between clients and servers over HTTP.
//
// The package focuses on:
//   - Client-side HTTP transport for sending RPC requests to servers
//   - Server-side HTTP transport for receiving and handling RPC requests
//   - Round-robin load balancing across multiple server endpoints
//   - Request routing based on shard IDs encoded in the URL path
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport, managing
//     connections to server endpoints, handling request routing, and
//     implementing retry mechanisms.
//
//   - httpServerTransport: Implements IRPCServerTransport, setting up an
//     HTTP server that routes incoming POST requests to the registered
//     handler based on the shard ID in the URL path.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It
//	uses atomic operations for the round-robin counter.
package http
