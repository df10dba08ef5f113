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

const (
	// Key-value queries
	queryGetEntry = `
		SELECT value FROM kv_entries WHERE key = ?`

	queryHasEntry = `
		SELECT 1 FROM kv_entries WHERE key = ? LIMIT 1`

	queryUpsertEntry = `
		INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE account = ? AND asset = ?`

	queryGetAccountBalances = `
		SELECT id, account, asset, balance, COALESCE(last_transaction_id, ''), version, updated_at
		FROM account_balances
		WHERE account = ? AND balance != 0
		ORDER BY asset`

	queryGetAllBalances = `
		SELECT id, account, asset, balance, COALESCE(last_transaction_id, ''), version, updated_at
		FROM account_balances
		WHERE balance != 0
		ORDER BY account, asset`

	queryReconcileBalance = `
		SELECT
			COALESCE(SUM(CASE WHEN destination = ? THEN amount ELSE 0 END), 0) -
			COALESCE(SUM(CASE WHEN source = ? THEN amount ELSE 0 END), 0)
		FROM transactions
		WHERE asset = ? AND (source = ? OR destination = ?)`

	// Transaction queries
	queryCheckDuplicateTransaction = `
		SELECT id FROM transactions WHERE reference = ? LIMIT 1`

	queryGetAccountBalance = `
		SELECT id, balance, version
		FROM account_balances
		WHERE account = ? AND asset = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (id, account, asset, balance, version)
		VALUES (?, ?, ?, ?, ?)`

	queryInsertTransaction = `
		INSERT INTO transactions (id, reference, asset, source, destination, amount, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_transaction_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE account = ? AND asset = ? AND version = ?`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transaction_id, account_id, asset, debit_amount, credit_amount)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetTransactionHistory = `
		SELECT id, reference, asset, source, destination, amount, kind, created_at
		FROM transactions
		WHERE (source = ? OR destination = ?) AND asset = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`
)
