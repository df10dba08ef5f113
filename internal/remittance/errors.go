package remittance

import (
	"errors"

	"remittance-escrow-go/internal/store"
)

// Every error returned by Service wraps exactly one of these.
var (
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAmountOutOfRange   = errors.New("amount out of range")
	ErrDailyLimitExceeded = errors.New("daily limit exceeded")
	ErrNotFound           = errors.New("remittance not found")
	ErrInvalidState       = errors.New("invalid remittance state")
	ErrTransferFailed     = errors.New("transfer failed")
	ErrAssetMismatch      = errors.New("asset does not match remittance")
	// ErrConflict is returned once every retry lost to a writer sharing the store.
	ErrConflict           = store.ErrConcurrentModification
)
