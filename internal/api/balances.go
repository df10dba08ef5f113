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

package api

import (
	"net/http"
	"strconv"
	"time"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// BalanceResponse is the body of GET /v1/balances/{account}
type BalanceResponse struct {
	Account        string          `json:"account"`
	Asset          string          `json:"asset"`
	Balance        int64           `json:"balance"`
	BalanceDisplay decimal.Decimal `json:"balance_display"`
}

// TransactionRecord is one ledger transfer as returned by the API
type TransactionRecord struct {
	Id            string          `json:"id"`
	Reference     string          `json:"reference"`
	Kind          string          `json:"kind"`
	Source        string          `json:"source"`
	Destination   string          `json:"destination"`
	Amount        int64           `json:"amount"`
	AmountDisplay decimal.Decimal `json:"amount_display"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransactionsResponse is the body of GET /v1/balances/{account}/transactions
type TransactionsResponse struct {
	Account      string              `json:"account"`
	Asset        string              `json:"asset"`
	Offset       uint32              `json:"offset"`
	Limit        uint32              `json:"limit"`
	Transactions []TransactionRecord `json:"transactions"`
}

// StatsResponse is the body of GET /v1/users/{account}/stats
type StatsResponse struct {
	Account string `json:"account"`
	models.UserStats
}

// handleHistory returns a page of remittances where the user is sender or recipient
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	offset, err := queryUint32(r, "offset", 0)
	if err != nil {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}
	limit, err := queryUint32(r, "limit", defaultHistoryLimit)
	if err != nil {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	page, err := s.remittances.GetUserHistory(r.Context(), account, offset, limit)
	if err != nil {
		zap.L().Error("Failed to get user history",
			zap.String("account", account),
			zap.Uint32("offset", offset),
			zap.Uint32("limit", limit),
			zap.Error(err))
		writeError(w, r, err)
		return
	}

	records := make([]models.RemittanceRecord, len(page))
	for i, rem := range page {
		records[i] = models.NewRemittanceRecord(rem)
	}
	writeJSON(w, http.StatusOK, models.HistoryResponse{
		Account:     account,
		Offset:      offset,
		Limit:       limit,
		Remittances: records,
	})
}

// handleStats returns the user's rate limit window, zero for unknown users
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	stats, err := s.remittances.GetUserStats(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Account: account, UserStats: stats})
}

// handleBalance returns an account's ledger balance for one asset
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		writeBadRequest(w, "asset is required")
		return
	}
	if s.balances == nil {
		writeJSON(w, http.StatusNotImplemented, models.ErrorResponse{Error: "no ledger configured", Code: "unavailable"})
		return
	}

	balance, err := s.balances.Balance(r.Context(), account, asset)
	if err != nil {
		zap.L().Error("Failed to get balance",
			zap.String("account", account),
			zap.String("asset", asset),
			zap.Error(err))
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		Account:        account,
		Asset:          asset,
		Balance:        balance,
		BalanceDisplay: models.DisplayAmount(balance),
	})
}

// handleTransactions lists the ledger transfers that moved an account's funds,
// newest first. Escrow, refund and compensation legs all show up here.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		writeBadRequest(w, "asset is required")
		return
	}
	history, ok := s.balances.(store.LedgerHistory)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, models.ErrorResponse{Error: "ledger cannot list transactions", Code: "unavailable"})
		return
	}

	offset, err := queryUint32(r, "offset", 0)
	if err != nil {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}
	limit, err := queryUint32(r, "limit", defaultHistoryLimit)
	if err != nil {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	txs, err := history.GetTransactionHistory(r.Context(), account, asset, int(limit), int(offset))
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("account", account),
			zap.String("asset", asset),
			zap.Error(err))
		writeError(w, r, err)
		return
	}

	records := make([]TransactionRecord, len(txs))
	for i, tx := range txs {
		records[i] = TransactionRecord{
			Id:            tx.Id,
			Reference:     tx.Reference,
			Kind:          tx.Kind,
			Source:        tx.Source,
			Destination:   tx.Destination,
			Amount:        tx.Amount,
			AmountDisplay: models.DisplayAmount(tx.Amount),
			CreatedAt:     tx.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, TransactionsResponse{
		Account:      account,
		Asset:        asset,
		Offset:       offset,
		Limit:        limit,
		Transactions: records,
	})
}

func queryUint32(r *http.Request, key string, fallback uint32) (uint32, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
