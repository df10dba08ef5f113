package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"remittance-escrow-go/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

const maxPollRecords = 500

// KafkaClient is the subset of *kgo.Client the settlement source needs. The
// client must be built with BlockRebalanceOnPoll and DisableAutoCommit.
type KafkaClient interface {
	PollRecords(ctx context.Context, maxPollRecords int) kgo.Fetches
	CommitUncommittedOffsets(ctx context.Context) error
	AllowRebalance()
}

var _ KafkaClient = (*kgo.Client)(nil)

// KafkaSource reads JSON settlement reports from a consumer group
type KafkaSource struct {
	kcl     KafkaClient
	metrics *Metrics
}

func NewKafkaSource(kcl KafkaClient, metrics *Metrics) *KafkaSource {
	return &KafkaSource{kcl: kcl, metrics: metrics}
}

// PollReports blocks until records arrive or ctx is done. Records that do not
// decode are logged and dropped; they would never succeed on redelivery.
func (s *KafkaSource) PollReports(ctx context.Context) ([]models.SettlementReport, error) {
	fetches := s.kcl.PollRecords(ctx, maxPollRecords)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errs := fetches.Errors(); len(errs) > 0 {
		// only non-retryable errors are returned
		for _, e := range errs {
			zap.L().Error("Settlement fetch error",
				zap.String("topic", e.Topic),
				zap.Int32("partition", e.Partition),
				zap.Error(e.Err))
		}
		return nil, errors.New("fetching settlement records")
	}

	var reports []models.SettlementReport
	iter := fetches.RecordIter()
	for !iter.Done() {
		record := iter.Next()
		report, err := decodeReport(record.Value)
		if err != nil {
			s.metrics.observe("malformed")
			zap.L().Error("Dropping malformed settlement report",
				zap.String("topic", record.Topic),
				zap.Int32("partition", record.Partition),
				zap.Int64("offset", record.Offset),
				zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *KafkaSource) Commit(ctx context.Context) error {
	if err := s.kcl.CommitUncommittedOffsets(ctx); err != nil {
		return fmt.Errorf("committing offsets: %w", err)
	}
	return nil
}

// AllowRebalance must follow every poll because of BlockRebalanceOnPoll
func (s *KafkaSource) AllowRebalance() {
	s.kcl.AllowRebalance()
}

func decodeReport(raw []byte) (models.SettlementReport, error) {
	var report models.SettlementReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return report, err
	}
	if report.RemittanceID.IsZero() {
		return report, fmt.Errorf("settlement report missing remittance id: %s", raw)
	}
	if report.AmountDest < 0 || report.ExchangeRate < 0 {
		return report, fmt.Errorf("settlement report has negative values: %+v", report)
	}
	return report, nil
}

// Metrics counts settlement reports by outcome
type Metrics struct {
	reports *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		reports: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "remittance",
			Subsystem: "settlement",
			Name:      "reports_total",
			Help:      "Settlement reports by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(outcome).Inc()
}
