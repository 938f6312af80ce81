// Package tcp implements TCP socket-based transport for the vault's RPC
// system. It provides concrete implementations of the base package's
// connector interfaces optimized for TCP connections.
//
// This package builds on the base package's transport functionality,
// inheriting its connection pooling, buffer reuse, and request routing. See
// the base package documentation for details on the underlying transport
// mechanisms.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector,
//     applying the socket tuning options from the server configuration
//     (no-delay, keep-alive, linger, buffer sizes)
//
// The default server buffer size is 512 KB, which provides good performance
// for typical workloads.
package tcp
