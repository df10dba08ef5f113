package remittance

import (
	"context"
	"fmt"

	"remittance-escrow-go/internal/models"
)

func (s *Service) GetRemittance(ctx context.Context, id models.RemittanceID) (models.Remittance, error) {
	record, ok, err := s.loadRemittance(ctx, id)
	if err != nil {
		return models.Remittance{}, err
	}
	if !ok {
		return models.Remittance{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return record, nil
}

// GetUserHistory walks the sequence from newest to oldest, re-deriving every
// ID, and returns matches [offset, offset+limit) where the user is sender or
// recipient. There is no per-account index: a user with few remittances
// among many costs a lookup per remittance ever created.
func (s *Service) GetUserHistory(ctx context.Context, user string, offset, limit uint32) ([]models.Remittance, error) {
	inst, ok, err := s.loadInstance(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || limit == 0 {
		return []models.Remittance{}, nil
	}

	result := make([]models.Remittance, 0, min(limit, 64))
	var skipped uint32
	lookups := 0
	defer func() { s.metrics.scanned(lookups) }()

	for seq := inst.Sequence; seq >= 1; seq-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lookups++
		record, found, err := s.loadRemittance(ctx, s.ids.Derive(seq))
		if err != nil {
			return nil, err
		}
		if !found || !record.Involves(user) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, record)
		if uint32(len(result)) == limit {
			break
		}
	}
	return result, nil
}

// GetUserStats never fails for an unknown user; it returns zero stats.
func (s *Service) GetUserStats(ctx context.Context, user string) (models.UserStats, error) {
	return s.loadStats(ctx, user)
}
