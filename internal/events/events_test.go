package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"remittance-escrow-go/internal/models"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	var results kgo.ProduceResults
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

type failingEmitter struct{ err error }

func (f failingEmitter) Emit(context.Context, Event) error { return f.err }

func testRemittance() models.Remittance {
	var id models.RemittanceID
	id[0] = 0x42
	return models.Remittance{
		ID:           id,
		Sender:       "alice",
		Recipient:    "bob",
		Asset:        "USDC",
		AmountSource: 500_0000000,
		AmountDest:   11225_0000000,
		ExchangeRate: 2245_0000,
		Fee:          2_5000000,
		Status:       models.StatusPending,
		CreatedAt:    1_700_000_000,
	}
}

func TestEventConstructors(t *testing.T) {
	r := testRemittance()

	created := Created(r)
	require.Equal(t, TopicCreated, created.Topic)
	require.Equal(t, "alice", created.Account)
	require.Equal(t, "bob", created.Attributes["recipient"])
	require.Equal(t, "5000000000", created.Attributes["amount"])
	require.Equal(t, uint64(1_700_000_000), created.Timestamp)

	completed := Completed(r, 1_700_000_100)
	require.Equal(t, TopicCompleted, completed.Topic)
	require.Equal(t, "112250000000", completed.Attributes["amount_dest"])
	require.Equal(t, uint64(1_700_000_100), completed.Timestamp)

	refunded := Refunded(r, 1_700_000_200)
	require.Equal(t, TopicRefunded, refunded.Topic)
	require.Equal(t, "alice", refunded.Account)
}

func TestKafkaEmitter_ProducesKeyedJSON(t *testing.T) {
	producer := &fakeProducer{}
	emitter := NewKafkaEmitter(producer, "remittance-events")

	event := Created(testRemittance())
	require.NoError(t, emitter.Emit(context.Background(), event))
	require.Len(t, producer.records, 1)

	record := producer.records[0]
	require.Equal(t, "remittance-events", record.Topic)
	require.Equal(t, []byte("alice"), record.Key)

	var decoded Event
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	require.Equal(t, event.RemittanceID, decoded.RemittanceID)
	require.Equal(t, TopicCreated, decoded.Topic)
}

func TestKafkaEmitter_ProduceError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker down")}
	emitter := NewKafkaEmitter(producer, "remittance-events")

	err := emitter.Emit(context.Background(), Created(testRemittance()))
	require.Error(t, err)
	require.ErrorContains(t, err, "broker down")
}

func TestLogEmitter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	require.NoError(t, LogEmitter{}.Emit(context.Background(), Refunded(testRemittance(), 10)))

	entries := logs.FilterMessage("Remittance event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "refund", fields["topic"])
	require.Equal(t, "alice", fields["account"])
}

func TestMultiEmitter_JoinsErrors(t *testing.T) {
	producer := &fakeProducer{}
	boom := errors.New("boom")
	multi := MultiEmitter{NoopEmitter{}, failingEmitter{err: boom}, NewKafkaEmitter(producer, "t")}

	err := multi.Emit(context.Background(), Created(testRemittance()))
	require.ErrorIs(t, err, boom)
	require.Len(t, producer.records, 1, "later emitters still run after a failure")
}
