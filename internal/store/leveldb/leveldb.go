// Package leveldb is a persistent store.KV on goleveldb.
package leveldb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"remittance-escrow-go/internal/store"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Store serializes guarded commits with mu. goleveldb holds a LOCK file on the
// directory, so no second process can open the same database.
type Store struct {
	mu sync.Mutex
	db *leveldb.DB
}

var _ store.KV = (*Store)(nil)

// Open creates or opens a LevelDB database at the specified path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening leveldb at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(_ context.Context, key []byte) ([]byte, error) {
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get: %w", err)
	}
	return value, nil
}

func (s *Store) Has(_ context.Context, key []byte) (bool, error) {
	ok, err := s.db.Has(key, nil)
	if err != nil {
		return false, fmt.Errorf("leveldb has: %w", err)
	}
	return ok, nil
}

func (s *Store) Set(_ context.Context, key, value []byte) error {
	if err := s.db.Put(key, value, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

func (s *Store) Commit(ctx context.Context, batch *store.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := store.CheckGuards(batch.Guards(), func(key []byte) ([]byte, error) {
		return s.Get(ctx, key)
	})
	if err != nil {
		return err
	}

	b := new(leveldb.Batch)
	for _, op := range batch.Ops() {
		b.Put(op.Key, op.Value)
	}
	if err := s.db.Write(b, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("leveldb batch write: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
