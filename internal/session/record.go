// Package session owns the wallet connection state machine: connect,
// disconnect, change-event tracking, persistence, and silent reconnect.
// It is the single writer of the observable connection state; the
// resolver and directory never touch it.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/chainlog/beacon/internal/fileutil"
	beaconerr "github.com/chainlog/beacon/pkg/errors"
)

// Record is the persisted session hint written on every successful
// connect and erased on disconnect. It only seeds the silent reconnect
// attempt on next startup; the wallet may well be gone by then. The JSON
// keys match the original web storage shape so migrated records load.
type Record struct {
	WalletID string `json:"walletId"`
	Address  string `json:"address"`
	ChainID  int64  `json:"chainId"`
}

// Store persists the session record.
type Store interface {
	// Load returns the stored record, ErrSessionNotFound when none
	// exists, or ErrSessionCorrupted for undecodable data.
	Load() (*Record, error)

	// Save replaces the stored record.
	Save(*Record) error

	// Clear removes the stored record. Idempotent.
	Clear() error
}

// recordFilePermissions is the mode for the record file.
const recordFilePermissions = 0o600

// FileStore is the file-backed Store.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the record file.
func (s *FileStore) Load() (*Record, error) {
	// #nosec G304 -- record path comes from validated config
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, beaconerr.ErrSessionNotFound
		}
		return nil, beaconerr.Wrap(err, "reading session record")
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, beaconerr.ErrSessionCorrupted
	}
	if rec.WalletID == "" {
		return nil, beaconerr.ErrSessionCorrupted
	}
	return &rec, nil
}

// Save writes the record atomically.
func (s *FileStore) Save(rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return beaconerr.Wrap(err, "creating session directory")
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return beaconerr.Wrap(err, "marshaling session record")
	}
	if err := fileutil.WriteAtomic(s.path, data, recordFilePermissions); err != nil {
		return beaconerr.Wrap(err, "writing session record")
	}
	return nil
}

// Clear removes the record file.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return beaconerr.Wrap(err, "removing session record")
	}
	return nil
}

// MemoryStore is an in-memory Store for embedders that manage their own
// persistence and for tests.
type MemoryStore struct {
	rec *Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored record.
func (s *MemoryStore) Load() (*Record, error) {
	if s.rec == nil {
		return nil, beaconerr.ErrSessionNotFound
	}
	cp := *s.rec
	return &cp, nil
}

// Save replaces the stored record.
func (s *MemoryStore) Save(rec *Record) error {
	cp := *rec
	s.rec = &cp
	return nil
}

// Clear removes the stored record.
func (s *MemoryStore) Clear() error {
	s.rec = nil
	return nil
}
