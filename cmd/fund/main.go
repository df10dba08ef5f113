package main

import (
	"context"
	"flag"
	"fmt"
	"slices"
	"strings"

	"remittance-escrow-go/internal/common"
	"remittance-escrow-go/internal/config"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func validateAccount(account string) error {
	if account == "" {
		return fmt.Errorf("account cannot be empty")
	}
	if strings.ContainsAny(account, " \t\n") {
		return fmt.Errorf("account cannot contain whitespace: %q", account)
	}
	return nil
}

// parseAmount converts a decimal string like "250.5" to fixed point
func parseAmount(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", raw)
	}
	scaled := d.Shift(7)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than 7 decimal places", raw)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s is too large", raw)
	}
	return scaled.IntPart(), nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Account to credit (required)")
	assetFlag := flag.String("asset", "USDC", "Asset symbol")
	amountFlag := flag.String("amount", "", "Decimal amount to credit, e.g. 1000 or 250.5 (required)")
	flag.Parse()

	if err := validateAccount(*accountFlag); err != nil {
		zap.L().Fatal("Invalid account", zap.Error(err))
	}
	amount, err := parseAmount(*amountFlag)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.Error(err))
	}
	asset := strings.ToUpper(*assetFlag)

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	assets, err := common.LoadOptionalAssetSymbols(cfg.AssetsFile)
	if err != nil {
		zap.L().Fatal("Failed to load asset configuration", zap.Error(err))
	}
	if len(assets) > 0 && !slices.Contains(assets, asset) {
		zap.L().Fatal("Asset is not configured", zap.String("asset", asset), zap.Strings("supported", assets))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	reference := "faucet-" + uuid.NewString()
	if err := services.Ledger.Credit(ctx, *accountFlag, asset, amount, reference); err != nil {
		zap.L().Fatal("Failed to credit account", zap.Error(err))
	}

	balance, err := services.Ledger.Balance(ctx, *accountFlag, asset)
	if err != nil {
		zap.L().Fatal("Failed to read balance", zap.Error(err))
	}

	zap.L().Info("Account funded",
		zap.String("account", *accountFlag),
		zap.String("credited", common.FormatAmount(amount, asset)),
		zap.String("balance", common.FormatAmount(balance, asset)),
		zap.String("reference", reference))
}
