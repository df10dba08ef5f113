package main

import (
	"context"
	"errors"
	"flag"

	"remittance-escrow-go/internal/common"
	"remittance-escrow-go/internal/config"
	"remittance-escrow-go/internal/remittance"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	adminFlag := flag.String("admin", "", "Admin identity recorded by the one-time initialization (required)")
	flag.Parse()

	if *adminFlag == "" {
		zap.L().Fatal("--admin is required")
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

	err = services.Remittance.Initialize(ctx, *adminFlag)
	if errors.Is(err, remittance.ErrAlreadyInitialized) {
		inst, _, _ := services.Remittance.Instance(ctx)
		zap.L().Warn("Escrow already initialized, nothing to do",
			zap.String("admin", inst.Admin),
			zap.Uint64("sequence", inst.Sequence))
		return
	}
	if err != nil {
		zap.L().Fatal("Initialization failed", zap.Error(err))
	}

	zap.L().Info("Initialization complete",
		zap.String("admin", *adminFlag),
		zap.String("store", cfg.Store.Backend),
		zap.String("ledger", cfg.Ledger.Backend))
}
