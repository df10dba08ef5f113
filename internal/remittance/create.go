package remittance

import (
	"context"
	"fmt"

	"remittance-escrow-go/internal/events"
	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"

	"go.uber.org/zap"
)

// CreateRemittance escrows amount from sender and records a pending remittance.
// Preconditions are checked in order (authorization, amount bounds, daily
// limit) before anything is written.
func (s *Service) CreateRemittance(ctx context.Context, sender, recipient string, amount int64, asset string) (models.RemittanceID, error) {
	var id models.RemittanceID
	err := retryOnConflict("create", func() error {
		var err error
		id, err = s.createRemittance(ctx, sender, recipient, amount, asset)
		return err
	})
	if err != nil {
		s.metrics.failed("create", err)
		return models.RemittanceID{}, err
	}
	s.metrics.succeeded("create")
	s.metrics.escrowed(amount)
	return id, nil
}

func (s *Service) createRemittance(ctx context.Context, sender, recipient string, amount int64, asset string) (models.RemittanceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, instRaw, err := s.requireInstance(ctx)
	if err != nil {
		return models.RemittanceID{}, err
	}

	if err := s.auth.Require(ctx, sender); err != nil {
		return models.RemittanceID{}, err
	}

	limits := s.cfg.Limits
	if amount < limits.MinAmount || amount > limits.MaxAmount {
		return models.RemittanceID{}, fmt.Errorf("%w: %d not in [%d, %d]",
			ErrAmountOutOfRange, amount, limits.MinAmount, limits.MaxAmount)
	}

	now := s.clock.Now()
	stats, err := s.loadStats(ctx, sender)
	if err != nil {
		return models.RemittanceID{}, err
	}
	stats, err = applyDailyLimit(stats, now, limits.DailyLimit)
	if err != nil {
		return models.RemittanceID{}, err
	}

	fee := s.CalculateFee(amount)
	seq := inst.Sequence + 1
	id := s.ids.Derive(seq)

	if exists, err := s.kv.Has(ctx, store.RemittanceKey(id)); err != nil {
		return models.RemittanceID{}, fmt.Errorf("checking id %s: %w", id, err)
	} else if exists {
		// a writer elsewhere committed this sequence after we read the instance
		return models.RemittanceID{}, fmt.Errorf("%w: sequence %d already stored as %s", store.ErrConcurrentModification, seq, id)
	}

	applied, err := s.transfer(ctx, "create", id, asset, sender, s.cfg.EscrowAccount, amount)
	if err != nil {
		return models.RemittanceID{}, err
	}

	record := models.Remittance{
		ID:           id,
		Sender:       sender,
		Recipient:    recipient,
		Asset:        asset,
		AmountSource: amount,
		AmountDest:   0,
		ExchangeRate: 0,
		Fee:          fee,
		Status:       models.StatusPending,
		CreatedAt:    now,
	}
	inst.Sequence = seq

	// Another writer that claimed this sequence has rewritten the instance.
	batch := store.NewBatch()
	batch.Expect(store.InstanceKey(), instRaw)
	batch.ExpectAbsent(store.RemittanceKey(id))
	if err := setJSON(batch, store.RemittanceKey(id), record); err != nil {
		return models.RemittanceID{}, err
	}
	if err := setJSON(batch, store.UserStatsKey(sender), stats); err != nil {
		return models.RemittanceID{}, err
	}
	if err := setJSON(batch, store.InstanceKey(), inst); err != nil {
		return models.RemittanceID{}, err
	}
	if err := s.commitOrCompensate(ctx, batch, applied); err != nil {
		return models.RemittanceID{}, err
	}

	zap.L().Info("Remittance created",
		zap.String("remittance_id", id.String()),
		zap.Uint64("sequence", seq),
		zap.String("sender", sender),
		zap.String("recipient", recipient),
		zap.String("asset", asset),
		zap.Int64("amount", amount),
		zap.Int64("fee", fee))

	s.emit(ctx, events.Created(record))
	return id, nil
}
