/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package events

import (
	"context"
	"errors"
	"strconv"

	"remittance-escrow-go/internal/models"

	"go.uber.org/zap"
)

type Topic string

// Topics carry the wire names subscribers already index on.
const (
	TopicCreated   Topic = "created"
	TopicCompleted Topic = "complete"
	TopicRefunded  Topic = "refund"
)

// Event is a state-change notification keyed by the remittance sender.
type Event struct {
	Topic        Topic               `json:"topic"`
	Account      string              `json:"account"`
	RemittanceID models.RemittanceID `json:"remittance_id"`
	Timestamp    uint64              `json:"timestamp"`
	Attributes   map[string]string   `json:"attributes,omitempty"`
}

func Created(r models.Remittance) Event {
	return Event{
		Topic:        TopicCreated,
		Account:      r.Sender,
		RemittanceID: r.ID,
		Timestamp:    r.CreatedAt,
		Attributes: map[string]string{
			"recipient": r.Recipient,
			"amount":    strconv.FormatInt(r.AmountSource, 10),
			"fee":       strconv.FormatInt(r.Fee, 10),
			"asset":     r.Asset,
		},
	}
}

func Completed(r models.Remittance, now uint64) Event {
	return Event{
		Topic:        TopicCompleted,
		Account:      r.Sender,
		RemittanceID: r.ID,
		Timestamp:    now,
		Attributes: map[string]string{
			"amount_dest":   strconv.FormatInt(r.AmountDest, 10),
			"exchange_rate": strconv.FormatInt(r.ExchangeRate, 10),
		},
	}
}

func Refunded(r models.Remittance, now uint64) Event {
	return Event{
		Topic:        TopicRefunded,
		Account:      r.Sender,
		RemittanceID: r.ID,
		Timestamp:    now,
		Attributes: map[string]string{
			"amount": strconv.FormatInt(r.AmountSource, 10),
			"asset":  r.Asset,
		},
	}
}

// Emitter publishes events. Emit is called after the state change is durable,
// so a failure here never rolls the change back.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// LogEmitter writes every event to the global zap logger.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, event Event) error {
	fields := []zap.Field{
		zap.String("topic", string(event.Topic)),
		zap.String("account", event.Account),
		zap.String("remittance_id", event.RemittanceID.String()),
		zap.Uint64("timestamp", event.Timestamp),
	}
	for k, v := range event.Attributes {
		fields = append(fields, zap.String(k, v))
	}
	zap.L().Info("Remittance event", fields...)
	return nil
}

type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, Event) error { return nil }

// MultiEmitter fans an event out to every emitter and joins their errors.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ctx context.Context, event Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
