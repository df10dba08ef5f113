// Package redisstore is a store.KV on Redis. Batches run as MULTI/EXEC, with
// guarded keys held under WATCH so writers in other processes abort the commit.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "remittance:"

type Store struct {
	client *redis.Client
}

var _ store.KV = (*Store)(nil)

func NewStore(ctx context.Context, cfg models.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping redis at %s: %w", cfg.Addr, err)
	}

	return &Store{client: client}, nil
}

func redisKey(key []byte) string {
	return keyPrefix + string(key)
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	value, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

func (s *Store) Has(ctx context.Context, key []byte) (bool, error) {
	n, err := s.client.Exists(ctx, redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Set(ctx context.Context, key, value []byte) error {
	if err := s.client.Set(ctx, redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Commit(ctx context.Context, batch *store.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	guards := batch.Guards()
	watched := make([]string, 0, len(guards))
	for _, g := range guards {
		watched = append(watched, redisKey(g.Key))
	}

	apply := func(tx *redis.Tx) error {
		err := store.CheckGuards(guards, func(key []byte) ([]byte, error) {
			value, err := tx.Get(ctx, redisKey(key)).Bytes()
			if errors.Is(err, redis.Nil) {
				return nil, store.ErrNotFound
			}
			return value, err
		})
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, op := range batch.Ops() {
				pipe.Set(ctx, redisKey(op.Key), op.Value, 0)
			}
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, apply, watched...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConcurrentModification):
		return err
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: watched key written during commit", store.ErrConcurrentModification)
	default:
		return fmt.Errorf("redis transaction: %w", err)
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}
