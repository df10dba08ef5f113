package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/remittance"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

// QuoteResponse is the body of GET /v1/fees
type QuoteResponse struct {
	models.Quote
	FeeDisplay       decimal.Decimal `json:"fee_display"`
	TotalCostDisplay decimal.Decimal `json:"total_cost_display"`
}

// handleInitialize is only routed when a bootstrap identity is configured, and
// only that identity may call it.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	if caller := models.CallerFromContext(r.Context()); caller != s.cfg.BootstrapAdmin {
		writeError(w, r, fmt.Errorf("%w: initialize requires the bootstrap identity", remittance.ErrUnauthorized))
		return
	}
	var req models.InitializeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.remittances.Initialize(r.Context(), req.Admin); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRemittanceRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(s.assets) > 0 && !s.assets[req.Asset] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "unsupported asset " + req.Asset, Code: "unsupported_asset"})
		return
	}

	id, err := s.remittances.CreateRemittance(r.Context(), req.Sender, req.Recipient, req.Amount, req.Asset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	zap.L().Info("Remittance created via API",
		zap.String("request_id", w.Header().Get(requestIDHeader)),
		zap.String("remittance_id", id.String()),
		zap.String("amount", models.DisplayAmount(req.Amount).String()),
		zap.String("asset", req.Asset))
	writeJSON(w, http.StatusCreated, models.CreateRemittanceResponse{Id: id})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := remittanceID(w, r)
	if !ok {
		return
	}
	record, err := s.remittances.GetRemittance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewRemittanceRecord(record))
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := remittanceID(w, r)
	if !ok {
		return
	}
	var req models.CompleteRemittanceRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.remittances.CompleteRemittance(r.Context(), id, req.AmountDest, req.ExchangeRate); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	id, ok := remittanceID(w, r)
	if !ok {
		return
	}
	var req models.RefundRemittanceRequest
	if !s.decodeOptional(w, r, &req) {
		return
	}
	if err := s.remittances.RefundRemittance(r.Context(), id, req.Asset); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil || amount <= 0 {
		writeBadRequest(w, "amount must be a positive fixed-point integer")
		return
	}
	q, err := s.remittances.Quote(amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QuoteResponse{
		Quote:            q,
		FeeDisplay:       models.DisplayAmount(q.Fee),
		TotalCostDisplay: models.DisplayAmount(q.TotalCost),
	})
}

func remittanceID(w http.ResponseWriter, r *http.Request) (models.RemittanceID, bool) {
	id, err := models.ParseRemittanceID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return id, false
	}
	return id, true
}

// decode reads a JSON body into dst and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return s.check(w, dst)
}

// decodeOptional accepts an empty body as the zero value of dst.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		writeBadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return s.check(w, dst)
}

func (s *Server) check(w http.ResponseWriter, dst any) bool {
	err := s.validate.Struct(dst)
	if err == nil {
		return true
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		e := verrs[0]
		writeBadRequest(w, fmt.Sprintf("field '%s' failed validation '%s'", e.Field(), e.Tag()))
		return false
	}
	writeBadRequest(w, err.Error())
	return false
}
