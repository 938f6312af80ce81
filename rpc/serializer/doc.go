// Package serializer provides message serialization for the vault's RPC
// system. It defines a common interface and multiple implementations for
// serializing and deserializing messages between client and server.
//
// The package focuses on:
//   - Providing a consistent interface for different serialization formats
//   - Offering multiple implementations with different performance characteristics
//   - Supporting efficient encoding of the system's message structure
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format optimized for speed and
//     space efficiency. Uses a flag-based approach to encode only present
//     fields, resulting in compact serialized data with minimal overhead.
//
//   - jsonSerializerImpl: JSON encoding, useful for debugging or
//     interoperability with other systems, but with lower performance.
//
//   - gobSerializerImpl: Go's built-in gob encoding, kept for completeness.
//     Consistently larger and slower than the other two.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
package serializer
