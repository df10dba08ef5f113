package store

import (
	"context"
	"sync"
)

// MemDB is an in-memory KV for tests and local development.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ KV = (*MemDB)(nil)

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Get(_ context.Context, key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (db *MemDB) Has(_ context.Context, key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *MemDB) Set(_ context.Context, key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Commit(_ context.Context, batch *Batch) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	err := CheckGuards(batch.Guards(), func(key []byte) ([]byte, error) {
		value, ok := db.data[string(key)]
		if !ok {
			return nil, ErrNotFound
		}
		return value, nil
	})
	if err != nil {
		return err
	}
	for _, op := range batch.Ops() {
		db.data[string(op.Key)] = append([]byte(nil), op.Value...)
	}
	return nil
}

// Close satisfies the KV interface for MemDB.
func (db *MemDB) Close() error {
	return nil
}
