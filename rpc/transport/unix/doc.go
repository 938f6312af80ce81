// Package unix implements a transport layer for the vault's RPC system
// using Unix domain sockets. It provides optimized communication for
// processes running on the same machine, which is the common deployment for
// a harvester feeding a local serving process.
//
// This package extends the base transport layer with Unix socket-specific
// connectors while inheriting all core functionality like connection
// pooling, request routing, and error handling from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners and accepts connections
//
// The default buffer size is 64 KB, optimized for local communication
// patterns.
package unix
