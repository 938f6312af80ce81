package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/crmvault/crmvault/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey    byte = 1 << 0
	hasEntity byte = 1 << 1
	hasValue  byte = 1 << 2
	hasCount  byte = 1 << 3
	hasTs     byte = 1 << 4
	hasOk     byte = 1 << 5
	hasErr    byte = 1 << 6
	hasMeta   byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 2 // Start after MsgType and flags

	// Handle Key
	if msg.Key != "" {
		flags |= hasKey
		keyLen := len(msg.Key)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(keyLen))
		pos += 4

		copy(result[pos:pos+keyLen], msg.Key)
		pos += keyLen
	}

	// Handle Entity
	if msg.Entity != "" {
		flags |= hasEntity
		entityLen := len(msg.Entity)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(entityLen))
		pos += 4

		copy(result[pos:pos+entityLen], msg.Entity)
		pos += entityLen
	}

	// Handle Value
	if msg.Value != nil {
		flags |= hasValue
		valueLen := len(msg.Value)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(valueLen))
		pos += 4

		if valueLen > 0 {
			copy(result[pos:pos+valueLen], msg.Value)
			pos += valueLen
		}
	}

	// Handle Count
	if msg.Count > 0 {
		flags |= hasCount
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.Count)
		pos += 8
	}

	// Handle Ts
	if msg.Ts != 0 {
		flags |= hasTs
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.Ts))
		pos += 8
	}

	// Handle Ok
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		errLen := len(msg.Err)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(errLen))
		pos += 4

		copy(result[pos:pos+errLen], msg.Err)
		pos += errLen
	}

	// Handle Meta
	if msg.Meta != nil {
		flags |= hasMeta
		metaLen := len(msg.Meta)

		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(metaLen))
		pos += 4

		if metaLen > 0 {
			copy(result[pos:pos+metaLen], msg.Meta)
			pos += metaLen
		}
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := data[1]

	// Initialize read position
	pos := 2

	// readBytes reads one length-prefixed field
	readBytes := func(field string) ([]byte, error) {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("data too short for %s length", field)
		}
		fieldLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(fieldLen) > len(data) {
			return nil, fmt.Errorf("data too short for %s data", field)
		}
		out := data[pos : pos+int(fieldLen)]
		pos += int(fieldLen)
		return out, nil
	}

	// Read Key if present
	if flags&hasKey != 0 {
		raw, err := readBytes("key")
		if err != nil {
			return err
		}
		msg.Key = string(raw)
	} else {
		msg.Key = ""
	}

	// Read Entity if present
	if flags&hasEntity != 0 {
		raw, err := readBytes("entity")
		if err != nil {
			return err
		}
		msg.Entity = string(raw)
	} else {
		msg.Entity = ""
	}

	// Read Value if present
	if flags&hasValue != 0 {
		raw, err := readBytes("value")
		if err != nil {
			return err
		}
		// Copy out of the shared input buffer, reusing msg.Value if possible
		if msg.Value == nil || cap(msg.Value) < len(raw) {
			msg.Value = make([]byte, len(raw))
		} else {
			msg.Value = msg.Value[:len(raw)]
		}
		copy(msg.Value, raw)
	} else {
		msg.Value = nil
	}

	// Read Count if present
	if flags&hasCount != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for count")
		}
		msg.Count = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		msg.Count = 0
	}

	// Read Ts if present
	if flags&hasTs != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for ts")
		}
		msg.Ts = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8
	} else {
		msg.Ts = 0
	}

	// Read Ok if present
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for ok flag")
		}
		msg.Ok = data[pos] != 0
		pos += 1
	} else {
		msg.Ok = false
	}

	// Read Err if present
	if flags&hasErr != 0 {
		raw, err := readBytes("error")
		if err != nil {
			return err
		}
		msg.Err = string(raw)
	} else {
		msg.Err = ""
	}

	// Read Meta if present
	if flags&hasMeta != 0 {
		raw, err := readBytes("meta")
		if err != nil {
			return err
		}
		if msg.Meta == nil || cap(msg.Meta) < len(raw) {
			msg.Meta = make([]byte, len(raw))
		} else {
			msg.Meta = msg.Meta[:len(raw)]
		}
		copy(msg.Meta, raw)
	} else {
		msg.Meta = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Entity != "" {
		size += 4 + len(msg.Entity)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Count > 0 {
		size += 8
	}
	if msg.Ts != 0 {
		size += 8
	}
	if msg.Ok {
		size += 1
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}
