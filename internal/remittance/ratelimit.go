package remittance

import (
	"fmt"

	"remittance-escrow-go/internal/models"
)

func dayBucket(now uint64) uint64 {
	return now / secondsPerDay
}

// applyDailyLimit returns the stats after one more creation at now, or
// ErrDailyLimitExceeded if the sender already used the day's allowance.
func applyDailyLimit(stats models.UserStats, now uint64, limit uint32) (models.UserStats, error) {
	day := dayBucket(now)
	if day == stats.LastTxDay && stats.DailyCount >= limit {
		return stats, fmt.Errorf("%w: %d of %d used on day %d", ErrDailyLimitExceeded, stats.DailyCount, limit, day)
	}

	if day == stats.LastTxDay {
		stats.DailyCount++
	} else {
		stats.DailyCount = 1
	}
	stats.LastTxDay = day
	stats.TotalCount++
	return stats, nil
}
