package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"remittance-escrow-go/internal/common"
	"remittance-escrow-go/internal/config"
	"remittance-escrow-go/internal/models"

	"go.uber.org/zap"
)

func printStats(account string, stats models.UserStats) {
	fmt.Printf("\n┌─ Account: %s\n", account)
	fmt.Printf("│  Total remittances: %d\n", stats.TotalCount)
	fmt.Printf("│  Created on day %d: %d\n", stats.LastTxDay, stats.DailyCount)
	common.PrintBoxSeparator(98)
}

func printRemittance(account string, r models.Remittance, isLast bool) {
	direction := "→ " + r.Recipient
	if r.Recipient == account && r.Sender != account {
		direction = "← " + r.Sender
	}
	fmt.Printf("%s %-9s %-24s %s\n", common.BoxPrefix(isLast), r.Status, common.FormatAmount(r.AmountSource, r.Asset), direction)

	detail := common.BoxDetailPrefix(isLast)
	fmt.Printf("%s   ID: %s\n", detail, r.ID)
	fmt.Printf("%s   Created: %s  Fee: %s\n", detail,
		time.Unix(int64(r.CreatedAt), 0).UTC().Format(time.RFC3339),
		common.FormatAmount(r.Fee, r.Asset))
	if r.Status == models.StatusCompleted {
		fmt.Printf("%s   Delivered: %s at rate %s\n", detail,
			models.DisplayAmount(r.AmountDest), models.DisplayAmount(r.ExchangeRate))
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Account whose remittances to list (required)")
	offsetFlag := flag.Uint("offset", 0, "Number of matching remittances to skip")
	limitFlag := flag.Uint("limit", 10, "Maximum number of remittances to print")
	flag.Parse()

	if *accountFlag == "" {
		zap.L().Fatal("--account is required")
	}
	if *limitFlag > 1000 {
		zap.L().Fatal("--limit cannot exceed 1000", zap.Uint("limit", *limitFlag))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	stats, err := services.Remittance.GetUserStats(ctx, *accountFlag)
	if err != nil {
		zap.L().Fatal("Failed to load stats", zap.Error(err))
	}

	page, err := services.Remittance.GetUserHistory(ctx, *accountFlag, uint32(*offsetFlag), uint32(*limitFlag))
	if err != nil {
		zap.L().Fatal("Failed to load history", zap.Error(err))
	}

	common.PrintHeader("REMITTANCE HISTORY", common.WideWidth)
	printStats(*accountFlag, stats)
	for i, r := range page {
		printRemittance(*accountFlag, r, i == len(page)-1)
	}
	common.PrintFooter(fmt.Sprintf("SHOWING %d remittances from offset %d", len(page), *offsetFlag), common.WideWidth)
}
