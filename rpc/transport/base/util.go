package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const headerSize = 20

// EncodeFrame builds a frame with the format:
// - 8 bytes: shardId (uint64, big endian)
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func EncodeFrame(shardID uint64, requestID uint64, data []byte) []byte {
	frame := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint64(frame[:8], shardID)
	binary.BigEndian.PutUint64(frame[8:16], requestID)
	binary.BigEndian.PutUint32(frame[16:20], uint32(len(data)))
	copy(frame[headerSize:], data)
	return frame
}

// DecodeFrame parses a full frame from a byte slice. The returned payload
// aliases the input.
func DecodeFrame(frame []byte) (shardID uint64, requestID uint64, data []byte, err error) {
	if len(frame) < headerSize {
		return 0, 0, nil, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	shardID = binary.BigEndian.Uint64(frame[:8])
	requestID = binary.BigEndian.Uint64(frame[8:16])
	contentLength := binary.BigEndian.Uint32(frame[16:20])
	if len(frame) != headerSize+int(contentLength) {
		return 0, 0, nil, fmt.Errorf("frame length mismatch: header says %d, got %d",
			contentLength, len(frame)-headerSize)
	}
	return shardID, requestID, frame[headerSize:], nil
}

// writeFrame writes a frame to the connection. Header and payload go out in
// a single writev to save a syscall.
func writeFrame(conn net.Conn, shardID uint64, requestID uint64, data []byte) error {
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header[:8], shardID)
	binary.BigEndian.PutUint64(header[8:16], requestID)
	binary.BigEndian.PutUint32(header[16:20], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the connection using the provided buffer
// If the buffer is too small, it will allocate a new temporary buffer for the data
func readFrame(conn net.Conn, buf []byte) (uint64, uint64, []byte, error) {
	// Check if buffer is large enough for header
	if buf == nil || len(buf) < headerSize {
		buf = make([]byte, headerSize)
	}

	// Read header
	if _, err := io.ReadFull(conn, buf[:headerSize]); err != nil {
		return 0, 0, nil, err
	}

	// Parse header
	shardID := binary.BigEndian.Uint64(buf[:8])
	requestID := binary.BigEndian.Uint64(buf[8:16])
	contentLength := binary.BigEndian.Uint32(buf[16:20])

	// If no data, return empty slice
	if contentLength == 0 {
		return shardID, requestID, []byte{}, nil
	}

	// Check if buffer is large enough for data
	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	// Read data
	if _, err := io.ReadFull(conn, buf[:contentLength]); err != nil {
		return 0, 0, nil, err
	}

	return shardID, requestID, buf[:contentLength], nil
}
