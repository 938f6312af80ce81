// Package ws implements a WebSocket transport for the vault's RPC system,
// built on github.com/gorilla/websocket. It carries the same binary frames
// as the stream transports (see the base package), one frame per WebSocket
// binary message, so the serializer and shard routing are unchanged.
//
// WebSocket sits between the raw stream transports and HTTP: it traverses
// HTTP-aware infrastructure (proxies, load balancers, TLS terminators) like
// the HTTP transport does, but keeps a persistent connection with request
// pipelining like TCP does.
//
// Key Components:
//
//   - wsClientTransport: Implements IRPCClientTransport. Maintains one
//     WebSocket connection per endpoint with a reader goroutine correlating
//     responses to in-flight requests by request ID.
//
//   - wsServerTransport: Implements IRPCServerTransport. Upgrades incoming
//     HTTP requests on /rpc and serves frames until the peer disconnects.
//
// Thread Safety:
//
//	Both sides are safe for concurrent use. Writes to a WebSocket
//	connection are serialized with a mutex as required by gorilla/websocket.
package ws
