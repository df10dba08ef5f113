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
	"database/sql"
)

// IssuerAccount is the counterparty of every Credit. It is the only account
// allowed to run a negative balance, so its balance is minus the total minted.
const IssuerAccount = "world"

// SubledgerService keeps per-account balances with a transaction audit trail
// and double-entry journal.
type SubledgerService struct {
	db *sql.DB
}

func NewSubledgerService(db *sql.DB) *SubledgerService {
	return &SubledgerService{
		db: db,
	}
}

func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Account Balances Table (Current State - Hot Data)
	CREATE TABLE IF NOT EXISTS account_balances (
		id TEXT PRIMARY KEY,
		account TEXT NOT NULL,
		asset TEXT NOT NULL,
		balance INTEGER NOT NULL DEFAULT 0,
		last_transaction_id TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(account, asset)
	);

	-- Transactions Table (Audit Trail - Cold Data)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		reference TEXT NOT NULL UNIQUE,
		asset TEXT NOT NULL,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount > 0),
		kind TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_account_balances_account ON account_balances(account);
	CREATE INDEX IF NOT EXISTS idx_transactions_source ON transactions(source, asset);
	CREATE INDEX IF NOT EXISTS idx_transactions_destination ON transactions(destination, asset);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);

	-- Journal Entries for Double-Entry Bookkeeping
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		asset TEXT NOT NULL,
		debit_amount INTEGER DEFAULT 0,
		credit_amount INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_journal_transaction_id ON journal_entries(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account_id, asset);
	`

	_, err := s.db.Exec(schema)
	return err
}
