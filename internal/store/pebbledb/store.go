// Package pebbledb is a persistent store.KV on cockroachdb/pebble.
package pebbledb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"remittance-escrow-go/internal/store"

	"github.com/cockroachdb/pebble"
)

// Store serializes guarded commits with mu. Pebble locks its directory, so
// the process that opened it is the only writer.
type Store struct {
	mu sync.Mutex
	db *pebble.DB
}

var _ store.KV = (*Store)(nil)

func NewStore(storeDir string) (*Store, error) {
	db, err := pebble.Open(filepath.Join(storeDir, "remittance-store"), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(_ context.Context, key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting key: %w", err)
	}
	defer closer.Close()

	// value is only valid until closer.Close
	return append([]byte(nil), value...), nil
}

func (s *Store) Has(ctx context.Context, key []byte) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Set(_ context.Context, key, value []byte) error {
	if err := s.db.Set(key, value, pebble.Sync); err != nil {
		return fmt.Errorf("setting key: %w", err)
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

	b := s.db.NewBatch()
	defer b.Close()

	for _, op := range batch.Ops() {
		if err := b.Set(op.Key, op.Value, nil); err != nil {
			return fmt.Errorf("staging batch op: %w", err)
		}
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
