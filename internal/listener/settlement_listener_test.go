package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/remittance"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeSource struct {
	mu         sync.Mutex
	batches    [][]models.SettlementReport
	pollErr    error
	commits    int
	rebalances int
}

func (f *fakeSource) PollReports(ctx context.Context) ([]models.SettlementReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeSource) Commit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	return nil
}

func (f *fakeSource) AllowRebalance() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebalances++
}

type completion struct {
	caller string
	report models.SettlementReport
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls []completion
	errs  map[models.RemittanceID]error
}

func (f *fakeCompleter) CompleteRemittance(ctx context.Context, id models.RemittanceID, amountDest, exchangeRate int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, completion{
		caller: models.CallerFromContext(ctx),
		report: models.SettlementReport{RemittanceID: id, AmountDest: amountDest, ExchangeRate: exchangeRate},
	})
	return f.errs[id]
}

func reportFor(b byte) models.SettlementReport {
	var id models.RemittanceID
	id[0] = b
	return models.SettlementReport{RemittanceID: id, AmountDest: 11225_0000000, ExchangeRate: 2245_0000}
}

func newTestListener(t *testing.T, source ReportSource, completer Completer, reg prometheus.Registerer) *SettlementListener {
	t.Helper()
	l, err := NewSettlementListener(SettlementListenerConfig{
		Source:          source,
		Completer:       completer,
		Reporter:        "oracle",
		PollingInterval: time.Millisecond,
		Metrics:         NewMetrics(reg),
	})
	if err != nil {
		t.Fatalf("NewSettlementListener failed: %v", err)
	}
	return l
}

func TestNewSettlementListener_Validation(t *testing.T) {
	tests := []SettlementListenerConfig{
		{Completer: &fakeCompleter{}, Reporter: "oracle", PollingInterval: time.Second},
		{Source: &fakeSource{}, Completer: &fakeCompleter{}, PollingInterval: time.Second},
		{Source: &fakeSource{}, Completer: &fakeCompleter{}, Reporter: "oracle"},
	}
	for i, cfg := range tests {
		if _, err := NewSettlementListener(cfg); err == nil {
			t.Errorf("Case %d: expected validation error", i)
		}
	}
}

func TestProcessBatch_CompletesAsReporter(t *testing.T) {
	source := &fakeSource{batches: [][]models.SettlementReport{{reportFor(1), reportFor(2)}}}
	completer := &fakeCompleter{}
	l := newTestListener(t, source, completer, prometheus.NewRegistry())

	count, err := l.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}
	if count != 2 || len(completer.calls) != 2 {
		t.Fatalf("Expected 2 completions, got %d/%d", count, len(completer.calls))
	}
	for _, c := range completer.calls {
		if c.caller != "oracle" {
			t.Errorf("Expected caller oracle, got %q", c.caller)
		}
		if c.report.AmountDest != 11225_0000000 || c.report.ExchangeRate != 2245_0000 {
			t.Errorf("Unexpected report %+v", c.report)
		}
	}
	if source.commits != 1 || source.rebalances != 1 {
		t.Errorf("Expected 1 commit and 1 rebalance, got %d/%d", source.commits, source.rebalances)
	}
}

func TestProcessBatch_SkipsSettledAndUnknown(t *testing.T) {
	source := &fakeSource{batches: [][]models.SettlementReport{{reportFor(1), reportFor(2), reportFor(3)}}}
	completer := &fakeCompleter{errs: map[models.RemittanceID]error{
		reportFor(1).RemittanceID: fmt.Errorf("%w: already complete", remittance.ErrInvalidState),
		reportFor(2).RemittanceID: remittance.ErrNotFound,
	}}
	reg := prometheus.NewRegistry()
	l := newTestListener(t, source, completer, reg)

	if _, err := l.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}
	if source.commits != 1 {
		t.Errorf("Expected the batch to be committed, got %d commits", source.commits)
	}
	if got := testutil.ToFloat64(l.metrics.reports.WithLabelValues("skipped")); got != 2 {
		t.Errorf("Expected 2 skipped reports, got %v", got)
	}
	if got := testutil.ToFloat64(l.metrics.reports.WithLabelValues("completed")); got != 1 {
		t.Errorf("Expected 1 completed report, got %v", got)
	}
}

func TestProcessBatch_FailureDoesNotCommit(t *testing.T) {
	source := &fakeSource{batches: [][]models.SettlementReport{{reportFor(1), reportFor(2)}}}
	completer := &fakeCompleter{errs: map[models.RemittanceID]error{
		reportFor(1).RemittanceID: remittance.ErrUnauthorized,
	}}
	l := newTestListener(t, source, completer, prometheus.NewRegistry())

	_, err := l.processBatch(context.Background())
	if !errors.Is(err, remittance.ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
	if source.commits != 0 {
		t.Errorf("Expected no commit, got %d", source.commits)
	}
	if len(completer.calls) != 1 {
		t.Errorf("Expected processing to stop at the failed report, got %d calls", len(completer.calls))
	}
	if source.rebalances != 1 {
		t.Errorf("Expected rebalance to be allowed after a failed batch, got %d", source.rebalances)
	}
}

func TestProcessBatch_EmptyPollSkipsCommit(t *testing.T) {
	source := &fakeSource{}
	l := newTestListener(t, source, &fakeCompleter{}, prometheus.NewRegistry())

	count, err := l.processBatch(context.Background())
	if err != nil || count != 0 {
		t.Fatalf("Expected empty batch, got %d (err %v)", count, err)
	}
	if source.commits != 0 || source.rebalances != 1 {
		t.Errorf("Expected no commit and 1 rebalance, got %d/%d", source.commits, source.rebalances)
	}
}

func TestStartStop(t *testing.T) {
	source := &fakeSource{batches: [][]models.SettlementReport{{reportFor(1)}}}
	completer := &fakeCompleter{}
	l := newTestListener(t, source, completer, prometheus.NewRegistry())

	l.Start(context.Background())
	deadline := time.After(2 * time.Second)
	for {
		completer.mu.Lock()
		n := len(completer.calls)
		completer.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for the report to be processed")
		case <-time.After(time.Millisecond):
		}
	}
	l.Stop()

	if l.Err() != nil {
		t.Errorf("Expected clean stop, got %v", l.Err())
	}
}

func TestPollLoopStopsOnFailure(t *testing.T) {
	source := &fakeSource{pollErr: errors.New("broker gone")}
	l := newTestListener(t, source, &fakeCompleter{}, prometheus.NewRegistry())

	l.Start(context.Background())
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the loop to exit after a failed poll")
	}
	if l.Err() == nil {
		t.Error("Expected Err to report the failure")
	}
	l.Stop()
}

func TestStopBeforeStart(t *testing.T) {
	source := &fakeSource{batches: [][]models.SettlementReport{{reportFor(1)}}}
	completer := &fakeCompleter{}
	l := newTestListener(t, source, completer, prometheus.NewRegistry())

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		l.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop on a listener that never started blocked")
	}

	select {
	case <-l.Done():
	default:
		t.Error("Expected Done to be closed after Stop")
	}

	// a stopped listener never consumes
	l.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	completer.mu.Lock()
	defer completer.mu.Unlock()
	if len(completer.calls) != 0 {
		t.Errorf("Expected no reports processed after Stop, got %d", len(completer.calls))
	}
}

func TestStartTwiceRunsOneLoop(t *testing.T) {
	l := newTestListener(t, &fakeSource{}, &fakeCompleter{}, prometheus.NewRegistry())

	l.Start(context.Background())
	l.Start(context.Background())

	done := make(chan struct{})
	go func() {
		l.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop after a repeated Start blocked")
	}
}

type fakeKafkaClient struct {
	fetches    kgo.Fetches
	commits    int
	rebalances int
}

func (f *fakeKafkaClient) PollRecords(context.Context, int) kgo.Fetches { return f.fetches }

func (f *fakeKafkaClient) CommitUncommittedOffsets(context.Context) error {
	f.commits++
	return nil
}

func (f *fakeKafkaClient) AllowRebalance() { f.rebalances++ }

func fetchesOf(records ...*kgo.Record) kgo.Fetches {
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      "settlement-reports",
		Partitions: []kgo.FetchPartition{{Partition: 0, Records: records}},
	}}}}
}

func TestKafkaSource_DecodesAndDropsMalformed(t *testing.T) {
	good, err := json.Marshal(reportFor(7))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	client := &fakeKafkaClient{fetches: fetchesOf(
		&kgo.Record{Value: good},
		&kgo.Record{Value: []byte("not json")},
		&kgo.Record{Value: []byte(`{"amount_dest":1,"exchange_rate":1}`)},
	)}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	source := NewKafkaSource(client, metrics)

	reports, err := source.PollReports(context.Background())
	if err != nil {
		t.Fatalf("PollReports failed: %v", err)
	}
	if len(reports) != 1 || reports[0] != reportFor(7) {
		t.Fatalf("Expected the single valid report, got %+v", reports)
	}
	if got := testutil.ToFloat64(metrics.reports.WithLabelValues("malformed")); got != 2 {
		t.Errorf("Expected 2 malformed records, got %v", got)
	}

	if err := source.Commit(context.Background()); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	source.AllowRebalance()
	if client.commits != 1 || client.rebalances != 1 {
		t.Errorf("Expected pass-through commit and rebalance, got %d/%d", client.commits, client.rebalances)
	}
}

func TestKafkaSource_FetchError(t *testing.T) {
	client := &fakeKafkaClient{fetches: kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      "settlement-reports",
		Partitions: []kgo.FetchPartition{{Partition: 0, Err: errors.New("not leader")}},
	}}}}}
	source := NewKafkaSource(client, nil)

	if _, err := source.PollReports(context.Background()); err == nil {
		t.Fatal("Expected fetch error")
	}
}

func TestKafkaSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	source := NewKafkaSource(&fakeKafkaClient{}, nil)

	if _, err := source.PollReports(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}
