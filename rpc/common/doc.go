// Package common provides core data structures and utilities shared across
// the vault's RPC system. It defines the wire protocol, configuration
// structures, and the logging setup used by the other rpc packages.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Configuration structures for client and server components
//   - A custom logger factory with consistent formatting
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with a
//     flexible field set that adapts to different operation types. Includes
//     factory methods for the various request and response messages.
//
//   - MessageType: Enumeration of all supported operations, split into raw
//     key-value operations (for clients that run the full lock protocol
//     themselves) and vault operations (for clients that delegate the
//     protocol to the server).
//
//   - ServerConfig / ClientConfig: Configuration for the serving process and
//     for client components, controlling endpoints, timeouts, engine choice
//     and transport tuning.
package common
