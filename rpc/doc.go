// Package rpc provides the remote access framework for the CRM vault. It
// lets the storage document live in one serving process while harvesters and
// operators interact with it from other processes or machines.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures shared across the RPC system, including
//     the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable
//     implementations (TCP, Unix sockets, WebSocket, HTTP).
//
//   - serializer: Message serialization with multiple format options
//     (Binary, JSON, GOB) for converting Message objects to byte arrays.
//
//   - client: RPC client implementations of the kv.IDocumentStore and
//     vault.IVault interfaces, so remote callers are indistinguishable from
//     local ones.
//
//   - server: RPC server components that route incoming requests to shard
//     adapters for store and vault operations.
package rpc
