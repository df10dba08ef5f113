package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type accountRow struct {
	id      string
	balance int64
	version int64
}

// ProcessTransfer atomically moves funds between two accounts and records the
// movement. Only the issuer account may go negative when allowOverdraft is set.
func (s *SubledgerService) ProcessTransfer(ctx context.Context, params store.TransferParams, allowOverdraft bool) (*models.LedgerTransaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	zap.L().Info("Processing transfer",
		zap.String("reference", params.Reference),
		zap.String("asset", params.Asset),
		zap.String("source", params.Source),
		zap.String("destination", params.Destination),
		zap.Int64("amount", params.Amount),
		zap.String("kind", params.Kind))

	// Start database transaction for atomicity
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if params.Reference != "" {
		var existingTxId string
		err := tx.QueryRowContext(ctx, queryCheckDuplicateTransaction, params.Reference).Scan(&existingTxId)
		if err == nil {
			zap.L().Warn("Duplicate transfer reference detected",
				zap.String("reference", params.Reference),
				zap.String("existing_tx_id", existingTxId))
			return nil, fmt.Errorf("%w: reference %s already exists", store.ErrDuplicateTransaction, params.Reference)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check for duplicate transaction: %w", err)
		}
	}

	source, err := loadOrCreateAccount(ctx, tx, params.Source, params.Asset)
	if err != nil {
		return nil, err
	}
	if !allowOverdraft && source.balance < params.Amount {
		return nil, fmt.Errorf("%w: %s holds %d %s, needs %d",
			store.ErrInsufficientFunds, params.Source, source.balance, params.Asset, params.Amount)
	}

	destination, err := loadOrCreateAccount(ctx, tx, params.Destination, params.Asset)
	if err != nil {
		return nil, err
	}

	transaction := &models.LedgerTransaction{
		Id:          uuid.New().String(),
		Reference:   params.Reference,
		Asset:       params.Asset,
		Source:      params.Source,
		Destination: params.Destination,
		Amount:      params.Amount,
		Kind:        params.Kind,
		CreatedAt:   time.Now().UTC(),
	}
	if transaction.Reference == "" {
		transaction.Reference = transaction.Id
	}

	_, err = tx.ExecContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.Reference, transaction.Asset, transaction.Source,
		transaction.Destination, transaction.Amount, transaction.Kind, transaction.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	// Update both balances (with optimistic locking)
	if err := updateBalance(ctx, tx, params.Source, params.Asset, source.balance-params.Amount, transaction.Id, source.version); err != nil {
		return nil, err
	}
	if err := updateBalance(ctx, tx, params.Destination, params.Asset, destination.balance+params.Amount, transaction.Id, destination.version); err != nil {
		return nil, err
	}

	if err := s.addJournalEntries(ctx, tx, transaction); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Transfer processed successfully",
		zap.String("transaction_id", transaction.Id),
		zap.String("reference", transaction.Reference),
		zap.Int64("source_balance", source.balance-params.Amount),
		zap.Int64("destination_balance", destination.balance+params.Amount))

	return transaction, nil
}

func loadOrCreateAccount(ctx context.Context, tx *sql.Tx, account, asset string) (accountRow, error) {
	var row accountRow
	err := tx.QueryRowContext(ctx, queryGetAccountBalance, account, asset).Scan(&row.id, &row.balance, &row.version)
	if errors.Is(err, sql.ErrNoRows) {
		row = accountRow{id: uuid.New().String(), balance: 0, version: 1}
		if _, err := tx.ExecContext(ctx, queryInsertAccountBalance, row.id, account, asset, 0, 1); err != nil {
			return accountRow{}, fmt.Errorf("failed to create account balance: %w", err)
		}
		return row, nil
	}
	if err != nil {
		return accountRow{}, fmt.Errorf("failed to get current balance: %w", err)
	}
	return row, nil
}

func updateBalance(ctx context.Context, tx *sql.Tx, account, asset string, balance int64, transactionId string, version int64) error {
	result, err := tx.ExecContext(ctx, queryUpdateAccountBalance, balance, transactionId, account, asset, version)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("balance update failed for %s - %w", account, store.ErrConcurrentModification)
	}
	return nil
}

// addJournalEntries debits the destination and credits the source.
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, transaction *models.LedgerTransaction) error {
	entries := []struct {
		accountId string
		debit     int64
		credit    int64
	}{
		{transaction.Destination, transaction.Amount, 0},
		{transaction.Source, 0, transaction.Amount},
	}

	for _, entry := range entries {
		_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), transaction.Id, entry.accountId, transaction.Asset, entry.debit, entry.credit)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetTransactionHistory returns paginated transfers touching an account, newest first.
func (s *SubledgerService) GetTransactionHistory(ctx context.Context, account, asset string, limit, offset int) ([]models.LedgerTransaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("account", account),
		zap.String("asset", asset),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, account, account, asset, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.LedgerTransaction
	for rows.Next() {
		var tx models.LedgerTransaction
		err := rows.Scan(&tx.Id, &tx.Reference, &tx.Asset, &tx.Source, &tx.Destination,
			&tx.Amount, &tx.Kind, &tx.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}
