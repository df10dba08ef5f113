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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remittance-escrow-go/internal/common"
	"remittance-escrow-go/internal/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Standalone settlement intake for deployments that run the HTTP API and the
// Kafka consumer as separate processes against the same store. Record commits
// are conditional on what each process read, so this needs a store several
// processes can open: sqlite or redis. LevelDB and Pebble lock their
// directory and the second process fails to start.
func main() {
	metricsAddr := flag.String("metrics-addr", ":9102", "Address for the /metrics endpoint (empty to disable)")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting settlement listener",
		zap.String("topic", cfg.Settlement.Topic),
		zap.String("group", cfg.Settlement.ConsumerGroup),
		zap.Strings("brokers", cfg.Events.Brokers))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	l, err := services.NewSettlementListener(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to create settlement listener", zap.Error(err))
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			if err := srv.ListenAndServe(); err != nil {
				zap.L().Error("Metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	l.Start(ctx)
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received, stopping listener...")
		l.Stop()
	case <-l.Done():
		if err := l.Err(); err != nil {
			zap.L().Fatal("Settlement listener failed", zap.Error(err))
		}
	}
}
