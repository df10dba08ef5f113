package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// RecordProducer is the part of *kgo.Client the emitter needs.
type RecordProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaEmitter publishes events as JSON records keyed by account, so every
// event for one sender lands on the same partition in order.
type KafkaEmitter struct {
	producer RecordProducer
	topic    string
}

func NewKafkaEmitter(producer RecordProducer, topic string) *KafkaEmitter {
	return &KafkaEmitter{producer: producer, topic: topic}
}

func (k *KafkaEmitter) Emit(ctx context.Context, event Event) error {
	record, err := createRecord(k.topic, event)
	if err != nil {
		return fmt.Errorf("creating event record: %w", err)
	}

	if err := k.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("producing event record: %w", err)
	}
	return nil
}

func createRecord(topic string, event Event) (*kgo.Record, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshalling to json: %w", err)
	}

	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.Account),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "topic", Value: []byte(event.Topic)},
		},
	}, nil
}
