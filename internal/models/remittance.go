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


package models

import (
	"encoding/hex"
	"fmt"
)

// AmountScale is the number of decimal places carried by every fixed-point amount.
const AmountScale = 7

// Status is the lifecycle state of a remittance. The string values are the
// wire symbols clients match on.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "complete"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RemittanceID is the 32-byte identifier derived from the sequence counter.
type RemittanceID [32]byte

func (id RemittanceID) String() string {
	return hex.EncodeToString(id[:])
}

func (id RemittanceID) IsZero() bool {
	return id == RemittanceID{}
}

func (id RemittanceID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *RemittanceID) UnmarshalText(text []byte) error {
	parsed, err := ParseRemittanceID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseRemittanceID decodes a 64 character hex string.
func ParseRemittanceID(s string) (RemittanceID, error) {
	var id RemittanceID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid remittance id %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("invalid remittance id %q: expected %d bytes, got %d", s, len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// Remittance is a single escrow transaction. AmountSource, Fee, Sender,
// Recipient and CreatedAt never change after creation; AmountDest and
// ExchangeRate are set exactly once, on completion.
type Remittance struct {
	ID           RemittanceID `json:"id"`
	Sender       string       `json:"sender"`
	Recipient    string       `json:"recipient"`
	Asset        string       `json:"asset"`
	AmountSource int64        `json:"amount_source"`
	AmountDest   int64        `json:"amount_dest"`
	ExchangeRate int64        `json:"exchange_rate"`
	Fee          int64        `json:"fee"`
	Status       Status       `json:"status"`
	CreatedAt    uint64       `json:"created_at"`
}

// Involves reports whether account is the sender or the recipient.
func (r *Remittance) Involves(account string) bool {
	return r.Sender == account || r.Recipient == account
}

// UserStats is the per-account rate limit window.
type UserStats struct {
	TotalCount uint32 `json:"total_count"`
	DailyCount uint32 `json:"daily_count"`
	LastTxDay  uint64 `json:"last_tx_day"`
}

// Instance is the persisted process-wide singleton written by Initialize.
type Instance struct {
	Admin    string `json:"admin"`
	Sequence uint64 `json:"sequence"`
}

// Quote is the pre-submission cost breakdown for an amount.
type Quote struct {
	Amount    int64 `json:"amount"`
	Fee       int64 `json:"fee"`
	TotalCost int64 `json:"total_cost"`
}

// SettlementReport carries the destination side of a completed remittance.
type SettlementReport struct {
	RemittanceID RemittanceID `json:"remittance_id"`
	AmountDest   int64        `json:"amount_dest"`
	ExchangeRate int64        `json:"exchange_rate"`
}
