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

package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/remittance"

	"go.uber.org/zap"
)

// ReportSource delivers settlement reports in batches. Commit acknowledges
// everything returned by the previous PollReports call.
type ReportSource interface {
	PollReports(ctx context.Context) ([]models.SettlementReport, error)
	Commit(ctx context.Context) error
	AllowRebalance()
}

// Completer is the part of the remittance service the listener drives
type Completer interface {
	CompleteRemittance(ctx context.Context, id models.RemittanceID, amountDest, exchangeRate int64) error
}

// SettlementListenerConfig contains configuration for SettlementListener
type SettlementListenerConfig struct {
	Source          ReportSource
	Completer       Completer
	Reporter        string
	PollingInterval time.Duration
	Metrics         *Metrics
}

// SettlementListener feeds settlement reports into CompleteRemittance under
// the settlement reporter's identity. A batch is committed only after every
// report in it was applied or deliberately skipped.
type SettlementListener struct {
	source          ReportSource
	completer       Completer
	reporter        string
	pollingInterval time.Duration
	metrics         *Metrics

	doneChan chan struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	err     error
}

// NewSettlementListener creates a new settlement listener
func NewSettlementListener(cfg SettlementListenerConfig) (*SettlementListener, error) {
	if cfg.Source == nil || cfg.Completer == nil {
		return nil, fmt.Errorf("settlement listener requires a source and a completer")
	}
	if cfg.Reporter == "" {
		return nil, fmt.Errorf("settlement reporter identity cannot be empty")
	}
	if cfg.PollingInterval <= 0 {
		return nil, fmt.Errorf("polling interval must be positive, got %v", cfg.PollingInterval)
	}
	return &SettlementListener{
		source:          cfg.Source,
		completer:       cfg.Completer,
		reporter:        cfg.Reporter,
		pollingInterval: cfg.PollingInterval,
		metrics:         cfg.Metrics,
		doneChan:        make(chan struct{}),
	}, nil
}

// Start begins consuming settlement reports in the background. Only the
// first call on a listener does anything.
func (l *SettlementListener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		zap.L().Warn("Settlement listener already started or stopped")
		return
	}
	l.started = true

	zap.L().Info("Starting settlement listener",
		zap.String("reporter", l.reporter),
		zap.Duration("polling_interval", l.pollingInterval))

	ctx, l.cancel = context.WithCancel(ctx)
	go l.pollLoop(ctx)
}

// Stop cancels any in-flight poll and waits for the loop to exit. Stopping a
// listener that never started closes Done and leaves Start a no-op.
func (l *SettlementListener) Stop() {
	zap.L().Info("Stopping settlement listener")

	l.mu.Lock()
	if !l.started {
		l.started = true
		close(l.doneChan)
		l.mu.Unlock()
		return
	}
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-l.doneChan
	zap.L().Info("Settlement listener stopped")
}

// Done is closed when the loop exits, either after Stop or after a batch
// failed. Err tells the two apart.
func (l *SettlementListener) Done() <-chan struct{} {
	return l.doneChan
}

func (l *SettlementListener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// pollLoop stops at the first failed batch so uncommitted reports are
// redelivered to whichever consumer picks the partition up next.
func (l *SettlementListener) pollLoop(ctx context.Context) {
	defer close(l.doneChan)

	ticker := time.NewTicker(l.pollingInterval)
	defer ticker.Stop()

	for {
		count, err := l.processBatch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			zap.L().Error("Settlement batch failed, listener stopping", zap.Error(err))
			l.mu.Lock()
			l.err = err
			l.mu.Unlock()
			return
		}
		if count > 0 {
			zap.L().Info("Processed settlement reports", zap.Int("count", count))
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (l *SettlementListener) processBatch(ctx context.Context) (int, error) {
	defer l.source.AllowRebalance()

	reports, err := l.source.PollReports(ctx)
	if err != nil {
		return 0, fmt.Errorf("polling settlement reports: %w", err)
	}
	if len(reports) == 0 {
		return 0, nil
	}

	callerCtx := models.WithCaller(ctx, l.reporter)
	for _, report := range reports {
		if err := l.apply(callerCtx, report); err != nil {
			return 0, err
		}
	}

	if err := l.source.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing settlement reports: %w", err)
	}
	return len(reports), nil
}

// apply completes one remittance. Reports for unknown or already settled
// remittances are skipped so redelivered batches are harmless.
func (l *SettlementListener) apply(ctx context.Context, report models.SettlementReport) error {
	err := l.completer.CompleteRemittance(ctx, report.RemittanceID, report.AmountDest, report.ExchangeRate)
	switch {
	case err == nil:
		l.metrics.observe("completed")
		return nil
	case errors.Is(err, remittance.ErrNotFound), errors.Is(err, remittance.ErrInvalidState):
		l.metrics.observe("skipped")
		zap.L().Warn("Skipping settlement report",
			zap.String("remittance_id", report.RemittanceID.String()),
			zap.Error(err))
		return nil
	default:
		l.metrics.observe("failed")
		return fmt.Errorf("completing remittance %s: %w", report.RemittanceID, err)
	}
}
