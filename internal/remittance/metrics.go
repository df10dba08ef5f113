package remittance

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: a Service built without metrics records nothing.
type Metrics struct {
	operations         *prometheus.CounterVec
	failures           *prometheus.CounterVec
	escrowedAmount     prometheus.Counter
	compensations      *prometheus.CounterVec
	historyScanLengths prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remittance",
			Name:      "operations_total",
			Help:      "Successful state-changing operations by kind",
		}, []string{"operation"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remittance",
			Name:      "operation_failures_total",
			Help:      "Rejected or failed operations by kind and reason",
		}, []string{"operation", "reason"}),
		escrowedAmount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "remittance",
			Name:      "escrowed_amount_total",
			Help:      "Fixed-point amount moved into escrow by successful creations",
		}),
		compensations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remittance",
			Name:      "compensations_total",
			Help:      "Compensating transfers after a failed record commit, by outcome",
		}, []string{"outcome"}),
		historyScanLengths: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "remittance",
			Name:      "history_scan_lookups",
			Help:      "Records looked up per history query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}

func (m *Metrics) succeeded(operation string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation).Inc()
}

func (m *Metrics) failed(operation string, err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(operation, reason(err)).Inc()
}

func (m *Metrics) escrowed(amount int64) {
	if m == nil {
		return
	}
	m.escrowedAmount.Add(float64(amount))
}

func (m *Metrics) compensated(ok bool) {
	if m == nil {
		return
	}
	outcome := "reversed"
	if !ok {
		outcome = "failed"
	}
	m.compensations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) scanned(lookups int) {
	if m == nil {
		return
	}
	m.historyScanLengths.Observe(float64(lookups))
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAmountOutOfRange):
		return "amount_out_of_range"
	case errors.Is(err, ErrDailyLimitExceeded):
		return "daily_limit_exceeded"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrAssetMismatch):
		return "asset_mismatch"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
