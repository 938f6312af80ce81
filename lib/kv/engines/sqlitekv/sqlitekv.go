package sqlitekv

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/crmvault/crmvault/lib/kv"
	"github.com/crmvault/crmvault/lib/kv/internal/subs"

	_ "modernc.org/sqlite"
)

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

type sqliteStore struct {
	db   *sql.DB
	subs *subs.Registry
}

// NewSQLiteStore opens (or creates) a SQLite-backed document store.
// Use ":memory:" for an in-memory database (useful in tests).
//
// Thread-safety: the returned store is safe for concurrent use; writes are
// serialized by the database.
func NewSQLiteStore(path string) (kv.IDocumentStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// WAL mode keeps concurrent readers cheap
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteStore{
		db:   db,
		subs: subs.NewRegistry(),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see kv/interface.go)
// --------------------------------------------------------------------------

func (s *sqliteStore) Set(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return kv.NewError(kv.RetCInternalError, fmt.Sprintf("set %q: %v", key, err))
	}
	s.subs.Notify(key)
	return nil
}

func (s *sqliteStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM documents WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kv.NewError(kv.RetCInternalError, fmt.Sprintf("get %q: %v", key, err))
	}
	return value, true, nil
}

func (s *sqliteStore) Delete(key string) error {
	res, err := s.db.Exec("DELETE FROM documents WHERE key = ?", key)
	if err != nil {
		return kv.NewError(kv.RetCInternalError, fmt.Sprintf("delete %q: %v", key, err))
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.subs.Notify(key)
	}
	return nil
}

func (s *sqliteStore) Has(key string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM documents WHERE key = ?", key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, kv.NewError(kv.RetCInternalError, fmt.Sprintf("has %q: %v", key, err))
	}
	return true, nil
}

func (s *sqliteStore) Subscribe(key string, fn kv.ChangeFunc) (string, error) {
	if fn == nil {
		return "", kv.NewError(kv.RetCInvalidOperation, "Subscribe requires a non-nil callback")
	}
	return s.subs.Add(key, fn), nil
}

func (s *sqliteStore) Unsubscribe(token string) error {
	s.subs.Remove(token)
	return nil
}

// Save is not supported: the database file is the persistent form.
func (s *sqliteStore) Save(io.Writer) error {
	return kv.NewError(kv.RetCUnsupportedOperation, "Save operation is not supported")
}

// Load is not supported: the database file is the persistent form.
func (s *sqliteStore) Load(io.Reader) error {
	return kv.NewError(kv.RetCUnsupportedOperation, "Load operation is not supported")
}

func (s *sqliteStore) SupportsFeature(feature kv.Feature) bool {
	supported := kv.FeatureSet |
		kv.FeatureGet |
		kv.FeatureDelete |
		kv.FeatureHas |
		kv.FeatureSubscribe
	return supported&feature == feature
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
