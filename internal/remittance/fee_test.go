package remittance

import (
	"errors"
	"math"
	"testing"

	"remittance-escrow-go/internal/models"
)

func TestCalculateFee(t *testing.T) {
	tests := []struct {
		amount int64
		want   int64
	}{
		{500_0000000, 2_5000000},
		{100_0000000, 5000000},
		{50000_0000000, 250_0000000},
		{199, 0},
		{200, 1},
		{399, 1},
		{0, 0},
		{-100, 0},
	}
	for _, tt := range tests {
		if got := calculateFee(tt.amount, 50); got != tt.want {
			t.Errorf("calculateFee(%d) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}

func TestCalculateFee_MatchesFloorFormula(t *testing.T) {
	for a := int64(100_0000000); a <= 50000_0000000; a += 123_4567891 {
		want := a * 50 / 10000
		if got := calculateFee(a, 50); got != want {
			t.Fatalf("calculateFee(%d) = %d, want %d", a, got, want)
		}
	}
}

func TestCalculateFee_NoOverflow(t *testing.T) {
	got := calculateFee(math.MaxInt64, 10_000)
	if got != math.MaxInt64 {
		t.Errorf("Expected 100%% fee of MaxInt64 to be MaxInt64, got %d", got)
	}
}

func TestQuote(t *testing.T) {
	h := newHarness(t)
	q, err := h.svc.Quote(500_0000000)
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	want := models.Quote{Amount: 500_0000000, Fee: 2_5000000, TotalCost: 502_5000000}
	if q != want {
		t.Errorf("Quote = %+v, want %+v", q, want)
	}
}

func TestQuote_RejectsOverflowingTotal(t *testing.T) {
	h := newHarness(t)

	for _, amount := range []int64{math.MaxInt64, math.MaxInt64 - 1000, 0, -5} {
		if q, err := h.svc.Quote(amount); !errors.Is(err, ErrAmountOutOfRange) {
			t.Errorf("Quote(%d) = %+v, %v; want ErrAmountOutOfRange", amount, q, err)
		}
	}

	// the largest amount whose total still fits
	fee := calculateFee(math.MaxInt64, 50)
	amount := int64(math.MaxInt64) - fee
	q, err := h.svc.Quote(amount)
	if err != nil {
		t.Fatalf("Quote(%d) failed: %v", amount, err)
	}
	if q.TotalCost < q.Amount || q.TotalCost != q.Amount+q.Fee {
		t.Errorf("Unexpected quote %+v", q)
	}
}

func TestApplyDailyLimit(t *testing.T) {
	day := uint64(19675)
	now := day * secondsPerDay

	tests := []struct {
		name    string
		stats   models.UserStats
		now     uint64
		want    models.UserStats
		wantErr bool
	}{
		{"first ever", models.UserStats{}, now, models.UserStats{TotalCount: 1, DailyCount: 1, LastTxDay: day}, false},
		{"same day", models.UserStats{TotalCount: 3, DailyCount: 2, LastTxDay: day}, now + 100, models.UserStats{TotalCount: 4, DailyCount: 3, LastTxDay: day}, false},
		{"at limit", models.UserStats{TotalCount: 9, DailyCount: 5, LastTxDay: day}, now, models.UserStats{}, true},
		{"new day", models.UserStats{TotalCount: 9, DailyCount: 5, LastTxDay: day}, now + secondsPerDay, models.UserStats{TotalCount: 10, DailyCount: 1, LastTxDay: day + 1}, false},
		{"day zero", models.UserStats{}, 10, models.UserStats{TotalCount: 1, DailyCount: 1, LastTxDay: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyDailyLimit(tt.stats, tt.now, 5)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyDailyLimit error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("applyDailyLimit = %+v, want %+v", got, tt.want)
			}
		})
	}
}
