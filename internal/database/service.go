/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time checks: one SQLite file backs both the record store and the ledger.
var (
	_ store.KV            = (*Service)(nil)
	_ store.AssetLedger   = (*Service)(nil)
	_ store.LedgerHistory = (*Service)(nil)
)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
	closeOnce sync.Once
	closeErr  error
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service, err := newServiceFromDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newServiceFromDB(db *sql.DB) (*Service, error) {
	service := &Service{db: db, subledger: NewSubledgerService(db)}
	if err := service.initSchema(); err != nil {
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}
	if err := service.subledger.InitSchema(); err != nil {
		return nil, fmt.Errorf("unable to initialize subledger schema: %w", err)
	}
	return service, nil
}

// Close is safe to call from both the KV and the ledger owner.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
		if s.closeErr != nil {
			zap.L().Warn("Failed to close database connection", zap.Error(s.closeErr))
		}
	})
	return s.closeErr
}

func (s *Service) initSchema() error {
	schema := `
	-- Remittance records, user stats and the instance singleton
	CREATE TABLE IF NOT EXISTS kv_entries (
		key BLOB PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Subledger convenience methods

func (s *Service) Transfer(ctx context.Context, params store.TransferParams) error {
	_, err := s.subledger.ProcessTransfer(ctx, params, false)
	if err != nil {
		return fmt.Errorf("error processing transfer: %w", err)
	}
	return nil
}

// Credit mints funds from the issuer account into account.
func (s *Service) Credit(ctx context.Context, account, asset string, amount int64, reference string) error {
	_, err := s.subledger.ProcessTransfer(ctx, store.TransferParams{
		Reference:   reference,
		Asset:       asset,
		Source:      IssuerAccount,
		Destination: account,
		Amount:      amount,
		Kind:        "faucet",
	}, true)
	if err != nil {
		return fmt.Errorf("error processing credit: %w", err)
	}
	return nil
}

func (s *Service) Balance(ctx context.Context, account, asset string) (int64, error) {
	return s.subledger.GetBalance(ctx, account, asset)
}

func (s *Service) GetAccountBalances(ctx context.Context, account string) ([]models.AccountBalance, error) {
	return s.subledger.GetAccountBalances(ctx, account)
}

func (s *Service) GetAllBalances(ctx context.Context) ([]models.AccountBalance, error) {
	return s.subledger.GetAllBalances(ctx)
}

func (s *Service) GetTransactionHistory(ctx context.Context, account, asset string, limit, offset int) ([]models.LedgerTransaction, error) {
	return s.subledger.GetTransactionHistory(ctx, account, asset, limit, offset)
}

func (s *Service) ReconcileBalance(ctx context.Context, account, asset string) error {
	return s.subledger.ReconcileBalance(ctx, account, asset)
}
