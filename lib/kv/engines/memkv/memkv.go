package memkv

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/crmvault/crmvault/lib/kv"
	"github.com/crmvault/crmvault/lib/kv/internal/subs"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum      = "CRMVKV\x00" // Snapshot format identifier
	snapshotVers  = 1            // Snapshot format version
	maxValueBytes = 1 << 30      // Sanity bound when loading snapshots
)

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

type memStore struct {
	data *xsync.MapOf[string, []byte]
	subs *subs.Registry
}

// NewMemStore creates a new in-memory document store.
//
// Thread-safety: the returned store is safe for concurrent use.
func NewMemStore() kv.IDocumentStore {
	return &memStore{
		data: xsync.NewMapOf[string, []byte](),
		subs: subs.NewRegistry(),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see kv/interface.go)
// --------------------------------------------------------------------------

func (s *memStore) Set(key string, value []byte) error {
	// Copy value to prevent aliasing with the caller's buffer
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	s.data.Store(key, valueCopy)
	s.subs.Notify(key)
	return nil
}

func (s *memStore) Get(key string) ([]byte, bool, error) {
	value, ok := s.data.Load(key)
	if !ok {
		return nil, false, nil
	}

	// Return a copy so callers can't corrupt the stored value
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	return valueCopy, true, nil
}

func (s *memStore) Delete(key string) error {
	_, existed := s.data.LoadAndDelete(key)
	if existed {
		s.subs.Notify(key)
	}
	return nil
}

func (s *memStore) Has(key string) (bool, error) {
	_, ok := s.data.Load(key)
	return ok, nil
}

func (s *memStore) Subscribe(key string, fn kv.ChangeFunc) (string, error) {
	if fn == nil {
		return "", kv.NewError(kv.RetCInvalidOperation, "Subscribe requires a non-nil callback")
	}
	return s.subs.Add(key, fn), nil
}

func (s *memStore) Unsubscribe(token string) error {
	s.subs.Remove(token)
	return nil
}

func (s *memStore) SupportsFeature(feature kv.Feature) bool {
	supported := kv.FeatureSet |
		kv.FeatureGet |
		kv.FeatureDelete |
		kv.FeatureHas |
		kv.FeatureSubscribe |
		kv.FeatureSave |
		kv.FeatureLoad
	return supported&feature == feature
}

func (s *memStore) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Snapshot Persistence
// --------------------------------------------------------------------------

// Save persists the current key space to the writer.
//
// Thread-safety: Save takes a snapshot of the map without blocking
// concurrent modifications; entries written or deleted during the save may
// or may not be included.
func (s *memStore) Save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 64*1024)

	type entry struct {
		key   string
		value []byte
	}
	var entries []entry
	s.data.Range(func(key string, value []byte) bool {
		entries = append(entries, entry{key: key, value: value})
		return true
	})

	// Header: magic, version, entry count
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(snapshotVers)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, e := range entries {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(e.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(e.key); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(e.value))); err != nil {
			return err
		}
		if _, err := bw.Write(e.value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load restores the key space from the reader, replacing any current state.
//
// Thread-safety: Load is not safe to run concurrently with other operations
// and should only be called during startup.
func (s *memStore) Load(r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)

	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid snapshot format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != snapshotVers {
		return fmt.Errorf("unsupported snapshot version: %d (expected %d)", version, snapshotVers)
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	// Replace the current state
	s.data = xsync.NewMapOf[string, []byte]()

	for i := uint64(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(br, keyBytes); err != nil {
			return err
		}

		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return err
		}
		if valueLen > maxValueBytes {
			return fmt.Errorf("corrupt snapshot: value length %d exceeds limit", valueLen)
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return err
		}

		s.data.Store(string(keyBytes), value)
	}

	return nil
}
