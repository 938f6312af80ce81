package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key    string `json:"key,omitempty"`    // Used for: Set, Get, Has, Delete; record id for Remove
	Entity string `json:"entity,omitempty"` // Used for: Insert, Remove requests
	Value  []byte `json:"value,omitempty"`  // Used for: Set (request), Get/Document (response), Insert (request, encoded batch)
	Count  uint64 `json:"count,omitempty"`  // Used for: Insert response (net-new records)
	Ts     int64  `json:"ts,omitempty"`     // Used for: Status response (lastSync, ms)

	// Response only fields
	Ok  bool   `json:"ok,omitempty"`  // Used for: Get, Has responses (loaded), Status response (syncInProgress)
	Err string `json:"err,omitempty"` // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional Adapters
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewSetRequest creates a new Set request
func NewSetRequest(key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTKVSet,
		Key:     key,
		Value:   value,
	}
}

// NewSetResponse creates a new Set response
func NewSetResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVSet,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVGet,
		Key:     key,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(value []byte, loaded bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVGet,
		Ok:      loaded,
		Value:   value,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVDelete,
		Key:     key,
	}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTKVDelete,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewHasRequest creates a new Has request
func NewHasRequest(key string) *Message {
	return &Message{
		MsgType: MsgTKVHas,
		Key:     key,
	}
}

// NewHasResponse creates a new Has response
func NewHasResponse(loaded bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTKVHas,
		Ok:      loaded,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewInsertRequest creates a new Insert request. The batch is a JSON-encoded
// array of records; it stays opaque to the transport.
func NewInsertRequest(entity string, batch []byte) *Message {
	return &Message{
		MsgType: MsgTVltInsert,
		Entity:  entity,
		Value:   batch,
	}
}

// NewInsertResponse creates a new Insert response
func NewInsertResponse(inserted uint64, err error) *Message {
	msg := &Message{
		MsgType: MsgTVltInsert,
		Count:   inserted,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewRemoveRequest creates a new Remove request
func NewRemoveRequest(entity, id string) *Message {
	return &Message{
		MsgType: MsgTVltRemove,
		Entity:  entity,
		Key:     id,
	}
}

// NewRemoveResponse creates a new Remove response
func NewRemoveResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTVltRemove,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewClearRequest creates a new Clear request
func NewClearRequest() *Message {
	return &Message{
		MsgType: MsgTVltClear,
	}
}

// NewClearResponse creates a new Clear response
func NewClearResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTVltClear,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewDocumentRequest creates a new Document request
func NewDocumentRequest() *Message {
	return &Message{
		MsgType: MsgTVltDocument,
	}
}

// NewDocumentResponse creates a new Document response carrying the encoded
// storage document
func NewDocumentResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTVltDocument,
		Value:   value,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewStatusRequest creates a new Status request
func NewStatusRequest() *Message {
	return &Message{
		MsgType: MsgTVltStatus,
	}
}

// NewStatusResponse creates a new Status response. Ok carries the
// syncInProgress flag, Ts the lastSync timestamp.
func NewStatusResponse(lastSync int64, syncInProgress bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTVltStatus,
		Ts:      lastSync,
		Ok:      syncInProgress,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTKVSet:
		return "set"
	case MsgTKVGet:
		return "get"
	case MsgTKVDelete:
		return "delete"
	case MsgTKVHas:
		return "has"
	case MsgTVltInsert:
		return "insert"
	case MsgTVltRemove:
		return "remove"
	case MsgTVltClear:
		return "clear"
	case MsgTVltDocument:
		return "document"
	case MsgTVltStatus:
		return "status"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "set":
		*t = MsgTKVSet
	case "get":
		*t = MsgTKVGet
	case "delete":
		*t = MsgTKVDelete
	case "has":
		*t = MsgTKVHas
	case "insert":
		*t = MsgTVltInsert
	case "remove":
		*t = MsgTVltRemove
	case "clear":
		*t = MsgTVltClear
	case "document":
		*t = MsgTVltDocument
	case "status":
		*t = MsgTVltStatus
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IDocumentStore operations (clients running the lock protocol locally)

	MsgTKVSet    // Set a key-value pair
	MsgTKVGet    // Get a value by key
	MsgTKVDelete // Delete a key-value pair
	MsgTKVHas    // Check if a key exists

	// IVault operations (server runs the lock protocol)

	MsgTVltInsert   // Merge a harvested batch with deduplication
	MsgTVltRemove   // Remove one record by id
	MsgTVltClear    // Reset the document
	MsgTVltDocument // Fetch the full document
	MsgTVltStatus   // Fetch lastSync and syncInProgress
)
