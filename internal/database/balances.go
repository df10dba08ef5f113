package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"remittance-escrow-go/internal/models"

	"go.uber.org/zap"
)

// GetBalance returns current balance for account/asset (O(1) lookup)
func (s *SubledgerService) GetBalance(ctx context.Context, account, asset string) (int64, error) {
	zap.L().Debug("Getting balance", zap.String("account", account), zap.String("asset", asset))

	var balance int64
	err := s.db.QueryRowContext(ctx, queryGetBalance, account, asset).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		// No balance record means zero balance
		return 0, nil
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("account", account), zap.String("asset", asset), zap.Error(err))
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}

// GetAccountBalances returns all non-zero balances for an account
func (s *SubledgerService) GetAccountBalances(ctx context.Context, account string) ([]models.AccountBalance, error) {
	return s.queryBalances(ctx, queryGetAccountBalances, account)
}

// GetAllBalances returns every non-zero balance across all accounts
func (s *SubledgerService) GetAllBalances(ctx context.Context) ([]models.AccountBalance, error) {
	return s.queryBalances(ctx, queryGetAllBalances)
}

func (s *SubledgerService) queryBalances(ctx context.Context, query string, args ...any) ([]models.AccountBalance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to get balances", zap.Error(err))
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var balances []models.AccountBalance
	for rows.Next() {
		var balance models.AccountBalance
		err := rows.Scan(&balance.Id, &balance.Account, &balance.Asset, &balance.Balance,
			&balance.LastTransactionId, &balance.Version, &balance.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, balance)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during balance row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	return balances, nil
}

// ReconcileBalance verifies that current balance matches the net of all transfers
func (s *SubledgerService) ReconcileBalance(ctx context.Context, account, asset string) error {
	zap.L().Info("Reconciling balance", zap.String("account", account), zap.String("asset", asset))

	currentBalance, err := s.GetBalance(ctx, account, asset)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	var calculatedBalance int64
	err = s.db.QueryRowContext(ctx, queryReconcileBalance, account, account, asset, account, account).Scan(&calculatedBalance)
	if err != nil {
		return fmt.Errorf("failed to calculate balance from transactions: %w", err)
	}

	if currentBalance != calculatedBalance {
		zap.L().Error("Balance reconciliation failed",
			zap.String("account", account),
			zap.String("asset", asset),
			zap.Int64("current_balance", currentBalance),
			zap.Int64("calculated_balance", calculatedBalance),
			zap.Int64("difference", currentBalance-calculatedBalance))
		return fmt.Errorf("balance mismatch: current=%d, calculated=%d", currentBalance, calculatedBalance)
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("account", account),
		zap.String("asset", asset),
		zap.Int64("balance", currentBalance))
	return nil
}
