package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"remittance-escrow-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, queryGetEntry, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return value, nil
}

func (s *Service) Has(ctx context.Context, key []byte) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, queryHasEntry, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check entry: %w", err)
	}
	return true, nil
}

func (s *Service) Set(ctx context.Context, key, value []byte) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertEntry, key, value); err != nil {
		return fmt.Errorf("failed to set entry: %w", err)
	}
	return nil
}

// Commit writes the batch inside one SQL transaction. Transactions begin
// IMMEDIATE, so the guard reads below already hold the database write lock and
// no other process can change a guarded key before the upserts land.
func (s *Service) Commit(ctx context.Context, batch *store.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = store.CheckGuards(batch.Guards(), func(key []byte) ([]byte, error) {
		var value []byte
		err := tx.QueryRowContext(ctx, queryGetEntry, key).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return value, err
	})
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, queryUpsertEntry)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		if err := stmt.Close(); err != nil {
			zap.L().Warn("Failed to close statement", zap.Error(err))
		}
	}(stmt)

	for _, op := range batch.Ops() {
		if _, err := stmt.ExecContext(ctx, op.Key, op.Value); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}
