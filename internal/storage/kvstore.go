// Package storage provides file-backed persistence primitives: atomic
// writes, advisory file locking, and a small JSON key-value store.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"
)

const (
	schemaVersion = "1.0"
	lockTimeout   = 5 * time.Second
)

// KVStore is a bucketed key-value store backed by a single JSON file.
// Writes are atomic (temp file + rename) and guarded by an advisory file
// lock so concurrent processes cannot clobber each other. Every entry
// carries its write time so callers can apply expiry policies.
type KVStore struct {
	path string
	lock *FileLock
	data *storeData
	mu   sync.RWMutex
}

// storeData is the top-level JSON structure.
type storeData struct {
	Version   string                       `json:"version"`
	UpdatedAt time.Time                    `json:"updated_at"`
	Buckets   map[string]map[string]*Entry `json:"buckets"`
}

// Entry is a stored value plus its write timestamp.
type Entry struct {
	WrittenAt time.Time       `json:"written_at"`
	Value     json.RawMessage `json:"value"`
}

// OpenKV opens (or creates) a KV store at the given path.
func OpenKV(path string) (*KVStore, error) {
	s := &KVStore{
		path: path,
		lock: NewFileLock(path),
	}

	if err := s.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}

	if err := s.load(); err != nil {
		s.lock.Unlock()
		return nil, err
	}

	return s, nil
}

// load reads the JSON file into memory. A missing or corrupt file yields an
// empty store; the catalog cache is always rebuildable from the network.
func (s *KVStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = newStoreData()
			return nil
		}
		return &StorageError{Op: "read", Err: err}
	}

	s.data = &storeData{}
	if err := json.Unmarshal(data, s.data); err != nil {
		s.data = newStoreData()
		return nil
	}
	if s.data.Buckets == nil {
		s.data.Buckets = make(map[string]map[string]*Entry)
	}
	return nil
}

// save persists the data to disk atomically.
func (s *KVStore) save() error {
	s.data.UpdatedAt = time.Now().UTC()

	writer, err := NewAtomicWriter(s.path)
	if err != nil {
		return &StorageError{Op: "write", Err: err}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		writer.Abort()
		return &StorageError{Op: "write", Err: err}
	}

	if err := writer.Commit(); err != nil {
		return &StorageError{Op: "write", Err: err}
	}
	return nil
}

// Get unmarshals the value stored under bucket/key into dst and returns the
// entry's write time. Returns ErrNotFound if the key does not exist.
func (s *KVStore) Get(bucket, key string, dst any) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.data.Buckets[bucket]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	entry, ok := b[key]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	if err := json.Unmarshal(entry.Value, dst); err != nil {
		return time.Time{}, &StorageError{Op: "read", Key: key, Err: err}
	}
	return entry.WrittenAt, nil
}

// Set stores value under bucket/key with the current time and persists the
// store to disk.
func (s *KVStore) Set(bucket, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(value)
	if err != nil {
		return &StorageError{Op: "write", Key: key, Err: err}
	}

	b, ok := s.data.Buckets[bucket]
	if !ok {
		b = make(map[string]*Entry)
		s.data.Buckets[bucket] = b
	}
	b[key] = &Entry{WrittenAt: time.Now().UTC(), Value: raw}

	return s.save()
}

// Delete removes bucket/key if present and persists the store.
func (s *KVStore) Delete(bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.data.Buckets[bucket]
	if !ok {
		return nil
	}
	if _, ok := b[key]; !ok {
		return nil
	}
	delete(b, key)
	return s.save()
}

// Close releases resources held by the store.
func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Unlock()
}

func newStoreData() *storeData {
	return &storeData{
		Version: schemaVersion,
		Buckets: make(map[string]map[string]*Entry),
	}
}
