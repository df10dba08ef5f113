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


package remittance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"remittance-escrow-go/internal/events"
	"remittance-escrow-go/internal/idgen"
	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const secondsPerDay = 86400

// Config holds the policy knobs of the escrow.
type Config struct {
	Limits        models.LimitsConfig
	EscrowAccount string
	// SettlementReporter is the only identity allowed to complete remittances.
	// When empty the admin recorded by Initialize is used.
	SettlementReporter string
}

// Dependencies are the collaborators the service reaches through interfaces.
// Emitter, Clock, Authorizer and Metrics are optional.
type Dependencies struct {
	Store   store.KV
	Ledger  store.AssetLedger
	IDs     idgen.Generator
	Emitter events.Emitter
	Clock   Clock
	Auth    Authorizer
	Metrics *Metrics
}

// maxConflictRetries bounds how often a mutation is re-run after another
// writer changed a record between our read and our commit.
const maxConflictRetries = 3

// Service is the remittance state machine. Mutating operations are serialized
// by mu within a process. Every commit is also guarded on the bytes it read,
// so services in other processes sharing the store cannot overwrite each
// other. Reads take no lock and observe the sequence counter once at entry.
type Service struct {
	mu sync.Mutex

	cfg     Config
	kv      store.KV
	ledger  store.AssetLedger
	ids     idgen.Generator
	emitter events.Emitter
	clock   Clock
	auth    Authorizer
	metrics *Metrics
}

func NewService(cfg Config, deps Dependencies) (*Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("remittance service requires a store")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("remittance service requires an asset ledger")
	}
	if deps.IDs == nil {
		return nil, fmt.Errorf("remittance service requires an id generator")
	}
	if cfg.EscrowAccount == "" {
		return nil, fmt.Errorf("escrow account cannot be empty")
	}
	limits := cfg.Limits
	if limits.MinAmount <= 0 || limits.MaxAmount < limits.MinAmount {
		return nil, fmt.Errorf("invalid amount bounds [%d, %d]", limits.MinAmount, limits.MaxAmount)
	}
	if limits.DailyLimit == 0 {
		return nil, fmt.Errorf("daily limit must be positive")
	}
	if limits.RefundTimeout <= 0 {
		return nil, fmt.Errorf("refund timeout must be positive")
	}

	s := &Service{
		cfg:     cfg,
		kv:      deps.Store,
		ledger:  deps.Ledger,
		ids:     deps.IDs,
		emitter: deps.Emitter,
		clock:   deps.Clock,
		auth:    deps.Auth,
		metrics: deps.Metrics,
	}
	if s.emitter == nil {
		s.emitter = events.NoopEmitter{}
	}
	if s.clock == nil {
		s.clock = &SystemClock{}
	}
	if s.auth == nil {
		s.auth = CallerAuthorizer{}
	}
	return s, nil
}

// Initialize records the admin identity and zeroes the sequence counter. It
// succeeds at most once over the lifetime of the store.
func (s *Service) Initialize(ctx context.Context, admin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if admin == "" {
		return fmt.Errorf("admin identity cannot be empty")
	}

	exists, err := s.kv.Has(ctx, store.InstanceKey())
	if err != nil {
		return fmt.Errorf("checking instance: %w", err)
	}
	if exists {
		s.metrics.failed("initialize", ErrAlreadyInitialized)
		return ErrAlreadyInitialized
	}

	batch := store.NewBatch()
	batch.ExpectAbsent(store.InstanceKey())
	if err := setJSON(batch, store.InstanceKey(), models.Instance{Admin: admin, Sequence: 0}); err != nil {
		return err
	}
	if err := s.kv.Commit(ctx, batch); err != nil {
		if errors.Is(err, store.ErrConcurrentModification) {
			s.metrics.failed("initialize", ErrAlreadyInitialized)
			return ErrAlreadyInitialized
		}
		return fmt.Errorf("persisting instance: %w", err)
	}

	s.metrics.succeeded("initialize")
	zap.L().Info("Remittance escrow initialized", zap.String("admin", admin))
	return nil
}

// Instance returns the persisted singleton; ok is false before Initialize.
func (s *Service) Instance(ctx context.Context) (models.Instance, bool, error) {
	return s.loadInstance(ctx)
}

// requireInstance also returns the stored bytes for guarding the commit.
func (s *Service) requireInstance(ctx context.Context) (models.Instance, []byte, error) {
	var inst models.Instance
	raw, err := s.getJSON(ctx, store.InstanceKey(), &inst)
	if err != nil {
		return models.Instance{}, nil, err
	}
	if raw == nil {
		return models.Instance{}, nil, ErrNotInitialized
	}
	return inst, raw, nil
}

// retryOnConflict re-runs op while its guarded commit loses to another
// writer. Each attempt re-reads state, so a lost race on a terminal
// transition surfaces as ErrInvalidState on the next pass.
func retryOnConflict(operation string, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err = op()
		if !errors.Is(err, store.ErrConcurrentModification) {
			return err
		}
		zap.L().Warn("Concurrent write detected, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return err
}

// transfer wraps ledger failures as ErrTransferFailed. References carry a
// random suffix so a retried operation never collides with a compensated one.
func (s *Service) transfer(ctx context.Context, kind string, id models.RemittanceID, asset, from, to string, amount int64) (store.TransferParams, error) {
	params := store.TransferParams{
		Reference:   fmt.Sprintf("%s-%s-%s", kind, id, uuid.NewString()),
		Asset:       asset,
		Source:      from,
		Destination: to,
		Amount:      amount,
		Kind:        kind,
	}
	if err := s.ledger.Transfer(ctx, params); err != nil {
		return params, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return params, nil
}

// commitOrCompensate commits the batch. If the commit fails the already
// applied transfer is reversed so the call has no observable effect.
func (s *Service) commitOrCompensate(ctx context.Context, batch *store.Batch, applied store.TransferParams) error {
	commitErr := s.kv.Commit(ctx, batch)
	if commitErr == nil {
		return nil
	}

	reverse := store.TransferParams{
		Reference:   "compensate-" + applied.Reference,
		Asset:       applied.Asset,
		Source:      applied.Destination,
		Destination: applied.Source,
		Amount:      applied.Amount,
		Kind:        "compensate",
	}
	// the caller's context may be what failed the commit
	if err := s.ledger.Transfer(context.WithoutCancel(ctx), reverse); err != nil {
		s.metrics.compensated(false)
		zap.L().Error("Compensating transfer failed, ledger and records disagree",
			zap.String("reference", applied.Reference),
			zap.String("source", applied.Source),
			zap.String("destination", applied.Destination),
			zap.Int64("amount", applied.Amount),
			zap.NamedError("commit_error", commitErr),
			zap.Error(err))
		// not wrapped as a conflict: a retry would move funds a second time
		return fmt.Errorf("persisting records: %v (compensation failed: %w)", commitErr, err)
	}

	s.metrics.compensated(true)
	zap.L().Warn("Record commit failed, transfer reversed",
		zap.String("reference", applied.Reference),
		zap.Error(commitErr))
	return fmt.Errorf("persisting records: %w", commitErr)
}

// emit runs after the commit; a failed notification is logged, never returned.
func (s *Service) emit(ctx context.Context, event events.Event) {
	if err := s.emitter.Emit(ctx, event); err != nil {
		zap.L().Warn("Failed to emit remittance event",
			zap.String("topic", string(event.Topic)),
			zap.String("remittance_id", event.RemittanceID.String()),
			zap.Error(err))
	}
}
