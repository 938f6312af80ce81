package serializer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/crmvault/crmvault/rpc/common"
)

// testSerializer runs one serializer against a set of representative
// messages covering every wire field.
func testSerializer(t *testing.T, name string, s IRPCSerializer) {
	t.Helper()

	messages := map[string]common.Message{
		"set request":       *common.NewSetRequest("crm/records", []byte(`{"contacts":[]}`)),
		"get response":      *common.NewGetResponse([]byte(`{"deals":[]}`), true, nil),
		"get miss":          *common.NewGetResponse(nil, false, nil),
		"insert request":    *common.NewInsertRequest("contacts", []byte(`[{"id":"a"}]`)),
		"insert response":   *common.NewInsertResponse(7, nil),
		"remove request":    *common.NewRemoveRequest("deals", "deal-42"),
		"status response":   *common.NewStatusResponse(1_700_000_000_000, true, nil),
		"error response":    *common.NewErrorResponse("shard not found"),
		"failed operation":  *common.NewSetResponse(errors.New("store unavailable")),
		"empty value":       {MsgType: common.MsgTKVSet, Key: "k", Value: []byte{}},
		"document response": *common.NewDocumentResponse([]byte(`{"contacts":[],"deals":[],"tasks":[]}`), nil),
	}

	for label, msg := range messages {
		t.Run(label, func(t *testing.T) {
			data, err := s.Serialize(msg)
			if err != nil {
				t.Fatalf("%s: serialize failed: %v", name, err)
			}

			var got common.Message
			if err := s.Deserialize(data, &got); err != nil {
				t.Fatalf("%s: deserialize failed: %v", name, err)
			}

			if got.MsgType != msg.MsgType {
				t.Errorf("MsgType = %s, want %s", got.MsgType, msg.MsgType)
			}
			if got.Key != msg.Key || got.Entity != msg.Entity {
				t.Errorf("Key/Entity = %q/%q, want %q/%q", got.Key, got.Entity, msg.Key, msg.Entity)
			}
			if !bytes.Equal(got.Value, msg.Value) && !(len(got.Value) == 0 && len(msg.Value) == 0) {
				t.Errorf("Value = %q, want %q", got.Value, msg.Value)
			}
			if got.Count != msg.Count || got.Ts != msg.Ts || got.Ok != msg.Ok {
				t.Errorf("Count/Ts/Ok = %d/%d/%v, want %d/%d/%v",
					got.Count, got.Ts, got.Ok, msg.Count, msg.Ts, msg.Ok)
			}
			if got.Err != msg.Err {
				t.Errorf("Err = %q, want %q", got.Err, msg.Err)
			}
		})
	}
}

func TestJSONSerializer(t *testing.T) {
	testSerializer(t, "json", NewJSONSerializer())
}

func TestGOBSerializer(t *testing.T) {
	testSerializer(t, "gob", NewGOBSerializer())
}

func TestBinarySerializer(t *testing.T) {
	testSerializer(t, "binary", NewBinarySerializer())
}

func TestBinarySerializerRejectsTruncatedInput(t *testing.T) {
	s := NewBinarySerializer()

	full, err := s.Serialize(*common.NewInsertRequest("contacts", []byte(`[{"id":"a"}]`)))
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	var msg common.Message
	if err := s.Deserialize(nil, &msg); err == nil {
		t.Errorf("nil input must be rejected")
	}
	if err := s.Deserialize(full[:len(full)/2], &msg); err == nil {
		t.Errorf("truncated input must be rejected")
	}
}

func TestBinarySerializerReusesTargetBuffers(t *testing.T) {
	s := NewBinarySerializer()

	first, _ := s.Serialize(*common.NewGetResponse([]byte("a long value to size the buffer"), true, nil))
	second, _ := s.Serialize(*common.NewGetResponse([]byte("short"), true, nil))

	var msg common.Message
	if err := s.Deserialize(first, &msg); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if err := s.Deserialize(second, &msg); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if string(msg.Value) != "short" {
		t.Errorf("Value = %q after buffer reuse, want %q", msg.Value, "short")
	}
}
