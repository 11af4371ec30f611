package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StateKey is the well-known key tracker state is stored under.
const StateKey = "joyland_cycle_tracker"

// Storage backends accepted by storage.backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

func validBackend(name string) bool {
	switch name {
	case BackendFile, BackendSQLite, BackendBadger:
		return true
	}
	return false
}

// Persister stores one opaque blob. Load reports false when nothing is
// stored.
type Persister interface {
	Load(ctx context.Context) ([]byte, bool, error)
	Save(ctx context.Context, blob []byte) error
	Clear(ctx context.Context) error
	Close() error
}

// OpenPersister opens the backend selected by the store's config.
func OpenPersister(s *Store) (Persister, error) {
	switch s.Config.Storage.Backend {
	case BackendFile, "":
		return NewFilePersister(s.Path("state"))
	case BackendSQLite:
		return NewSQLitePersister(s.Path("state", "joyland.db"))
	case BackendBadger:
		return NewBadgerPersister(s.Path("state", "badger"))
	case BackendMemory:
		return NewMemoryPersister(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.Config.Storage.Backend)
	}
}

// FilePersister keeps the blob in state/<key>.json.
type FilePersister struct {
	path string
}

// NewFilePersister creates a FilePersister, ensuring the directory exists.
func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &FilePersister{path: filepath.Join(dir, StateKey+".json")}, nil
}

func (p *FilePersister) Load(ctx context.Context) ([]byte, bool, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", p.path, err)
	}
	return data, true, nil
}

// Save writes through a temp file so a crash never leaves a torn blob.
func (p *FilePersister) Save(ctx context.Context, blob []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(p.path), StateKey+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("rename to %s: %w", p.path, err)
	}
	return nil
}

func (p *FilePersister) Clear(ctx context.Context) error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p.path, err)
	}
	return nil
}

func (p *FilePersister) Close() error { return nil }

// MemoryPersister keeps the blob in process memory.
type MemoryPersister struct {
	mu   sync.Mutex
	blob []byte
}

func NewMemoryPersister() *MemoryPersister { return &MemoryPersister{} }

func (p *MemoryPersister) Load(ctx context.Context) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.blob == nil {
		return nil, false, nil
	}
	return append([]byte(nil), p.blob...), true, nil
}

func (p *MemoryPersister) Save(ctx context.Context, blob []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blob = append([]byte(nil), blob...)
	return nil
}

func (p *MemoryPersister) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blob = nil
	return nil
}

func (p *MemoryPersister) Close() error { return nil }
