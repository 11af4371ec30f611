package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPersister keeps the blob in an embedded Badger key-value store.
type BadgerPersister struct {
	db *badger.DB
}

// NewBadgerPersister opens a Badger database in dir. An empty dir opens an
// in-memory database.
func NewBadgerPersister(dir string) (*BadgerPersister, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerPersister{db: db}, nil
}

func (p *BadgerPersister) Load(ctx context.Context) ([]byte, bool, error) {
	var blob []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(StateKey))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", StateKey, err)
	}
	return blob, true, nil
}

func (p *BadgerPersister) Save(ctx context.Context, blob []byte) error {
	if err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(StateKey), blob)
	}); err != nil {
		return fmt.Errorf("set %s: %w", StateKey, err)
	}
	return nil
}

func (p *BadgerPersister) Clear(ctx context.Context) error {
	if err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(StateKey))
	}); err != nil {
		return fmt.Errorf("delete %s: %w", StateKey, err)
	}
	return nil
}

func (p *BadgerPersister) Close() error { return p.db.Close() }
