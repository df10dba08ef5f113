package remittance

import (
	"fmt"
	"math"

	"remittance-escrow-go/internal/models"
)

// CalculateFee returns floor(amount * FeeBasisPoints / 10000). The fee is
// recorded on the remittance but never withheld from the escrowed amount.
func (s *Service) CalculateFee(amount int64) int64 {
	return calculateFee(amount, s.cfg.Limits.FeeBasisPoints)
}

// Quote is the cost breakdown a client shows before submitting. It rejects
// amounts whose total cost does not fit in an int64.
func (s *Service) Quote(amount int64) (models.Quote, error) {
	if amount <= 0 {
		return models.Quote{}, fmt.Errorf("%w: %d must be positive", ErrAmountOutOfRange, amount)
	}
	fee := s.CalculateFee(amount)
	if amount > math.MaxInt64-fee {
		return models.Quote{}, fmt.Errorf("%w: total cost of %d overflows", ErrAmountOutOfRange, amount)
	}
	return models.Quote{Amount: amount, Fee: fee, TotalCost: amount + fee}, nil
}

func calculateFee(amount, basisPoints int64) int64 {
	if amount <= 0 {
		return 0
	}
	// amount*bps overflows int64 above ~9.2e14 at 10000 bps
	return amount/10_000*basisPoints + amount%10_000*basisPoints/10_000
}
