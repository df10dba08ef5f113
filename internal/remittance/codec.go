package remittance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"
)

// loadInstance reports ok=false before Initialize has run.
func (s *Service) loadInstance(ctx context.Context) (models.Instance, bool, error) {
	var inst models.Instance
	raw, err := s.getJSON(ctx, store.InstanceKey(), &inst)
	return inst, raw != nil, err
}

func (s *Service) loadRemittance(ctx context.Context, id models.RemittanceID) (models.Remittance, bool, error) {
	var r models.Remittance
	raw, err := s.getJSON(ctx, store.RemittanceKey(id), &r)
	return r, raw != nil, err
}

func (s *Service) loadStats(ctx context.Context, account string) (models.UserStats, error) {
	var stats models.UserStats
	_, err := s.getJSON(ctx, store.UserStatsKey(account), &stats)
	return stats, err
}

// getJSON decodes the value at key into dest and returns the raw bytes, which
// callers pass to Batch.Expect. A nil result means the key is absent.
func (s *Service) getJSON(ctx context.Context, key []byte, dest any) ([]byte, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %x: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return nil, fmt.Errorf("decoding %x: %w", key, err)
	}
	return raw, nil
}

func setJSON(batch *store.Batch, key []byte, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %x: %w", key, err)
	}
	batch.Set(key, raw)
	return nil
}
