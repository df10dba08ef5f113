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
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remittance-escrow-go/internal/api"
	"remittance-escrow-go/internal/common"
	"remittance-escrow-go/internal/config"
	"remittance-escrow-go/internal/listener"

	"go.uber.org/zap"
)

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting remittance escrow server", zap.String("addr", cfg.Server.Addr))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	assets, err := common.LoadOptionalAssetSymbols(cfg.AssetsFile)
	if err != nil {
		zap.L().Fatal("Failed to load asset configuration", zap.Error(err))
	}

	server := api.NewServer(services.Remittance, services.Ledger, services.HealthCheck, cfg.Server, services.Registry)
	if len(assets) > 0 {
		server.SetSupportedAssets(assets)
		zap.L().Info("Restricting remittances to configured assets", zap.Strings("assets", assets))
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var settlement *listener.SettlementListener
	var settlementDone <-chan struct{}
	if cfg.Settlement.ListenerEnabled {
		settlement, err = services.NewSettlementListener(ctx, cfg)
		if err != nil {
			zap.L().Fatal("Failed to create settlement listener", zap.Error(err))
		}
		settlement.Start(ctx)
		settlementDone = settlement.Done()
	}

	zap.L().Info("Server running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received")
	case err := <-serverErr:
		zap.L().Error("HTTP server failed", zap.Error(err))
	case <-settlementDone:
		zap.L().Error("Settlement listener exited, shutting down", zap.Error(settlement.Err()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if settlement != nil {
		settlement.Stop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
		return
	}
	zap.L().Info("Server stopped gracefully")
}
