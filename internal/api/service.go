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
	"context"
	"fmt"
	"net/http"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/remittance"
	"remittance-escrow-go/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
)

// Remittances is the subset of the remittance service the HTTP layer calls
type Remittances interface {
	Initialize(ctx context.Context, admin string) error
	CreateRemittance(ctx context.Context, sender, recipient string, amount int64, asset string) (models.RemittanceID, error)
	CompleteRemittance(ctx context.Context, id models.RemittanceID, amountDest, exchangeRate int64) error
	RefundRemittance(ctx context.Context, id models.RemittanceID, asset string) error
	GetRemittance(ctx context.Context, id models.RemittanceID) (models.Remittance, error)
	GetUserHistory(ctx context.Context, user string, offset, limit uint32) ([]models.Remittance, error)
	GetUserStats(ctx context.Context, user string) (models.UserStats, error)
	Quote(amount int64) (models.Quote, error)
}

// Balances reads account balances from the asset ledger
type Balances interface {
	Balance(ctx context.Context, account, asset string) (int64, error)
}

var (
	_ Remittances = (*remittance.Service)(nil)
	_ Balances    = (store.AssetLedger)(nil)
)

// Server exposes the remittance service over HTTP
type Server struct {
	remittances Remittances
	balances    Balances
	health      func(ctx context.Context) error
	cfg         models.ServerConfig
	registry    *prometheus.Registry
	validate    *validator.Validate
	metrics     *httpMetrics
	assets      map[string]bool
}

// NewServer wires the handlers. health is called by /healthz; registry backs
// /metrics and receives the HTTP request counters.
func NewServer(remittances Remittances, balances Balances, health func(ctx context.Context) error, cfg models.ServerConfig, registry *prometheus.Registry) *Server {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Server{
		remittances: remittances,
		balances:    balances,
		health:      health,
		cfg:         cfg,
		registry:    registry,
		validate:    validator.New(),
		metrics:     newHTTPMetrics(registry),
	}
}

// SetSupportedAssets restricts new remittances to the given symbols. An empty
// list accepts any asset the ledger knows.
func (s *Server) SetSupportedAssets(symbols []string) {
	s.assets = make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		s.assets[symbol] = true
	}
}

func (s *Server) HealthCheck(ctx context.Context) error {
	if s.health == nil {
		return nil
	}
	if err := s.health(ctx); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: err.Error(), Code: "unhealthy"})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
