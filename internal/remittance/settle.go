package remittance

import (
	"context"
	"fmt"

	"remittance-escrow-go/internal/events"
	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"

	"go.uber.org/zap"
)

// CompleteRemittance records the destination amount and exchange rate reported
// by the settlement reporter. The escrowed funds stay where they are.
func (s *Service) CompleteRemittance(ctx context.Context, id models.RemittanceID, amountDest, exchangeRate int64) error {
	err := retryOnConflict("complete", func() error {
		return s.completeRemittance(ctx, id, amountDest, exchangeRate)
	})
	if err != nil {
		s.metrics.failed("complete", err)
		return err
	}
	s.metrics.succeeded("complete")
	return nil
}

func (s *Service) completeRemittance(ctx context.Context, id models.RemittanceID, amountDest, exchangeRate int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, _, err := s.requireInstance(ctx)
	if err != nil {
		return err
	}

	reporter := s.cfg.SettlementReporter
	if reporter == "" {
		reporter = inst.Admin
	}
	if err := s.auth.Require(ctx, reporter); err != nil {
		return err
	}

	record, raw, err := s.pendingRemittance(ctx, id)
	if err != nil {
		return err
	}

	record.AmountDest = amountDest
	record.ExchangeRate = exchangeRate
	record.Status = models.StatusCompleted

	batch := store.NewBatch()
	batch.Expect(store.RemittanceKey(id), raw)
	if err := setJSON(batch, store.RemittanceKey(id), record); err != nil {
		return err
	}
	if err := s.kv.Commit(ctx, batch); err != nil {
		return fmt.Errorf("persisting completion: %w", err)
	}

	zap.L().Info("Remittance completed",
		zap.String("remittance_id", id.String()),
		zap.String("sender", record.Sender),
		zap.Int64("amount_dest", amountDest),
		zap.Int64("exchange_rate", exchangeRate))

	s.emit(ctx, events.Completed(record, s.clock.Now()))
	return nil
}

// RefundRemittance returns the escrowed amount to the sender. Until the refund
// timeout has elapsed only the sender may ask; afterwards anyone can.
// An empty asset means the asset the remittance was created with.
func (s *Service) RefundRemittance(ctx context.Context, id models.RemittanceID, asset string) error {
	err := retryOnConflict("refund", func() error {
		return s.refundRemittance(ctx, id, asset)
	})
	if err != nil {
		s.metrics.failed("refund", err)
		return err
	}
	s.metrics.succeeded("refund")
	return nil
}

func (s *Service) refundRemittance(ctx context.Context, id models.RemittanceID, asset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.requireInstance(ctx); err != nil {
		return err
	}

	record, raw, err := s.pendingRemittance(ctx, id)
	if err != nil {
		return err
	}

	if asset == "" {
		asset = record.Asset
	}
	if asset != record.Asset {
		return fmt.Errorf("%w: %s was created in %s, refund asked for %s", ErrAssetMismatch, id, record.Asset, asset)
	}

	now := s.clock.Now()
	timeout := uint64(s.cfg.Limits.RefundTimeout.Seconds())
	if now < record.CreatedAt+timeout {
		if err := s.auth.Require(ctx, record.Sender); err != nil {
			return err
		}
	}

	applied, err := s.transfer(ctx, "refund", id, asset, s.cfg.EscrowAccount, record.Sender, record.AmountSource)
	if err != nil {
		return err
	}

	record.Status = models.StatusFailed

	// A completion committed elsewhere while the refund transfer ran fails
	// this guard and the transfer is reversed.
	batch := store.NewBatch()
	batch.Expect(store.RemittanceKey(id), raw)
	if err := setJSON(batch, store.RemittanceKey(id), record); err != nil {
		return err
	}
	if err := s.commitOrCompensate(ctx, batch, applied); err != nil {
		return err
	}

	zap.L().Info("Remittance refunded",
		zap.String("remittance_id", id.String()),
		zap.String("sender", record.Sender),
		zap.String("caller", models.CallerFromContext(ctx)),
		zap.Int64("amount", record.AmountSource),
		zap.Uint64("age_seconds", now-min(now, record.CreatedAt)))

	s.emit(ctx, events.Refunded(record, now))
	return nil
}

// pendingRemittance also returns the stored bytes for guarding the commit.
func (s *Service) pendingRemittance(ctx context.Context, id models.RemittanceID) (models.Remittance, []byte, error) {
	var record models.Remittance
	raw, err := s.getJSON(ctx, store.RemittanceKey(id), &record)
	if err != nil {
		return models.Remittance{}, nil, err
	}
	if raw == nil {
		return models.Remittance{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if record.Status != models.StatusPending {
		return models.Remittance{}, nil, fmt.Errorf("%w: %s is %s", ErrInvalidState, id, record.Status)
	}
	return record, raw, nil
}
