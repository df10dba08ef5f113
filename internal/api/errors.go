package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/remittance"

	"go.uber.org/zap"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{remittance.ErrAlreadyInitialized, http.StatusConflict, "already_initialized"},
	{remittance.ErrNotInitialized, http.StatusServiceUnavailable, "not_initialized"},
	{remittance.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{remittance.ErrAmountOutOfRange, http.StatusBadRequest, "amount_out_of_range"},
	{remittance.ErrAssetMismatch, http.StatusBadRequest, "asset_mismatch"},
	{remittance.ErrDailyLimitExceeded, http.StatusTooManyRequests, "daily_limit_exceeded"},
	{remittance.ErrNotFound, http.StatusNotFound, "not_found"},
	{remittance.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{remittance.ErrTransferFailed, http.StatusPaymentRequired, "transfer_failed"},
	{remittance.ErrConflict, http.StatusConflict, "conflict"},
}

// writeError maps the remittance error taxonomy onto HTTP status codes.
// Anything else is logged and reported as an opaque internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeJSON(w, m.status, models.ErrorResponse{Error: err.Error(), Code: m.code})
			return
		}
	}

	zap.L().Error("Request failed",
		zap.String("request_id", w.Header().Get(requestIDHeader)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal error", Code: "internal"})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: msg, Code: "bad_request"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}
