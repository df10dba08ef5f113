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

package main

import (
	"context"
	"flag"
	"fmt"

	"remittance-escrow-go/internal/common"
	"remittance-escrow-go/internal/config"
	"remittance-escrow-go/internal/database"
	"remittance-escrow-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalAccounts   int
	totalBalances   int
	reconcileErrors int
}

func printAccountHeader(account string, balanceCount int) {
	fmt.Printf("\n┌─ Account: %s\n", account)
	fmt.Printf("│  Balances: %d\n", balanceCount)
	common.PrintBoxSeparator(78)
}

func printBalances(balances []models.AccountBalance) {
	for i, b := range balances {
		isLast := i == len(balances)-1
		fmt.Printf("%s %-10s %s\n", common.BoxPrefix(isLast), b.Asset, common.FormatAmount(b.Balance, b.Asset))
		if b.LastTransactionId != "" {
			fmt.Printf("%s   Last transaction: %s\n", common.BoxDetailPrefix(isLast), b.LastTransactionId)
		}
	}
}

// describeTransaction renders one transfer from the point of view of account
func describeTransaction(account string, tx models.LedgerTransaction) string {
	direction, counterparty := "in ", tx.Source
	if tx.Source == account {
		direction, counterparty = "out", tx.Destination
	}
	return fmt.Sprintf("%s  %s  %-22s %-20s %s",
		tx.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		direction,
		common.FormatAmount(tx.Amount, tx.Asset),
		counterparty,
		tx.Kind)
}

func printTransactions(account string, txs []models.LedgerTransaction) {
	for i, tx := range txs {
		fmt.Printf("%s %s\n", common.BoxDetailPrefix(i == len(txs)-1), describeTransaction(account, tx))
	}
}

// groupByAccount keeps the query order, which is sorted by account
func groupByAccount(balances []models.AccountBalance) ([]string, map[string][]models.AccountBalance) {
	var order []string
	grouped := make(map[string][]models.AccountBalance)
	for _, b := range balances {
		if _, ok := grouped[b.Account]; !ok {
			order = append(order, b.Account)
		}
		grouped[b.Account] = append(grouped[b.Account], b)
	}
	return order, grouped
}

func generateReport(ctx context.Context, dbService *database.Service, accountFilter string, reconcile bool, transactions int, logger *zap.Logger) (balanceStats, error) {
	stats := balanceStats{}

	var balances []models.AccountBalance
	var err error
	if accountFilter != "" {
		balances, err = dbService.GetAccountBalances(ctx, accountFilter)
	} else {
		balances, err = dbService.GetAllBalances(ctx)
	}
	if err != nil {
		return stats, fmt.Errorf("failed to get balances: %w", err)
	}

	accounts, grouped := groupByAccount(balances)
	for _, account := range accounts {
		stats.totalAccounts++
		stats.totalBalances += len(grouped[account])

		printAccountHeader(account, len(grouped[account]))
		printBalances(grouped[account])

		if transactions > 0 {
			for _, b := range grouped[account] {
				txs, err := dbService.GetTransactionHistory(ctx, account, b.Asset, transactions, 0)
				if err != nil {
					return stats, fmt.Errorf("failed to get %s history for %s: %w", b.Asset, account, err)
				}
				fmt.Printf("│  Last %d %s transfers\n", len(txs), b.Asset)
				printTransactions(account, txs)
			}
		}

		if !reconcile {
			continue
		}
		for _, b := range grouped[account] {
			if err := dbService.ReconcileBalance(ctx, account, b.Asset); err != nil {
				stats.reconcileErrors++
				logger.Error("Balance does not match journal",
					zap.String("account", account),
					zap.String("asset", b.Asset),
					zap.Error(err))
			}
		}
	}

	return stats, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Filter by a single account (optional)")
	reconcileFlag := flag.Bool("reconcile", false, "Check every balance against the journal entries")
	transactionsFlag := flag.Int("transactions", 0, "Show the N most recent transfers per balance")
	flag.Parse()

	if *transactionsFlag < 0 {
		logger.Fatal("--transactions must not be negative", zap.Int("transactions", *transactionsFlag))
	}

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Ledger.Backend != "sqlite" {
		logger.Fatal("Balance report reads the SQLite subledger", zap.String("ledger_backend", cfg.Ledger.Backend))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	common.PrintHeader("ACCOUNT BALANCE REPORT", common.DefaultWidth)

	stats, err := generateReport(ctx, dbService, *accountFlag, *reconcileFlag, *transactionsFlag, logger)
	if err != nil {
		logger.Fatal("Failed to generate report", zap.Error(err))
	}

	summary := fmt.Sprintf("SUMMARY: %d balances across %d accounts", stats.totalBalances, stats.totalAccounts)
	if *reconcileFlag {
		summary += fmt.Sprintf(", %d reconciliation errors", stats.reconcileErrors)
	}
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("accounts", stats.totalAccounts),
		zap.Int("balances", stats.totalBalances),
		zap.Int("reconcile_errors", stats.reconcileErrors))
}
