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
	"github.com/shopspring/decimal"
)

// InitializeRequest is the body of POST /v1/initialize
type InitializeRequest struct {
	Admin string `json:"admin" validate:"required,max=128"`
}

// CreateRemittanceRequest is the body of POST /v1/remittances
type CreateRemittanceRequest struct {
	Sender    string `json:"sender" validate:"required,max=128"`
	Recipient string `json:"recipient" validate:"required,max=128"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Asset     string `json:"asset" validate:"required,max=32"`
}

// CompleteRemittanceRequest is the body of POST /v1/remittances/{id}/complete
type CompleteRemittanceRequest struct {
	AmountDest   int64 `json:"amount_dest" validate:"gte=0"`
	ExchangeRate int64 `json:"exchange_rate" validate:"gte=0"`
}

// RefundRemittanceRequest is the body of POST /v1/remittances/{id}/refund
type RefundRemittanceRequest struct {
	Asset string `json:"asset" validate:"omitempty,max=32"`
}

// CreateRemittanceResponse returns the identifier of a new remittance
type CreateRemittanceResponse struct {
	Id RemittanceID `json:"id"`
}

// RemittanceRecord is the API view of a remittance. Raw fixed-point values are
// returned alongside their decimal rendering.
type RemittanceRecord struct {
	Remittance
	AmountSourceDisplay decimal.Decimal `json:"amount_source_display"`
	AmountDestDisplay   decimal.Decimal `json:"amount_dest_display"`
	ExchangeRateDisplay decimal.Decimal `json:"exchange_rate_display"`
	FeeDisplay          decimal.Decimal `json:"fee_display"`
}

// HistoryResponse is a page of a user's remittances, newest first
type HistoryResponse struct {
	Account     string             `json:"account"`
	Offset      uint32             `json:"offset"`
	Limit       uint32             `json:"limit"`
	Remittances []RemittanceRecord `json:"remittances"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// DisplayAmount renders a fixed-point amount as a decimal value.
func DisplayAmount(v int64) decimal.Decimal {
	return decimal.New(v, -AmountScale)
}

func NewRemittanceRecord(r Remittance) RemittanceRecord {
	return RemittanceRecord{
		Remittance:          r,
		AmountSourceDisplay: DisplayAmount(r.AmountSource),
		AmountDestDisplay:   DisplayAmount(r.AmountDest),
		ExchangeRateDisplay: DisplayAmount(r.ExchangeRate),
		FeeDisplay:          DisplayAmount(r.Fee),
	}
}
