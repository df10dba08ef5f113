package formance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Compile-time checks: *Service is a ledger that can also list its history.
var (
	_ store.AssetLedger   = (*Service)(nil)
	_ store.LedgerHistory = (*Service)(nil)
)

// Service implements store.AssetLedger backed by a Formance Stack ledger.
type Service struct {
	client *v3.Formance
	ledger string
}

// NewService connects to the stack, creates the ledger if it doesn't already
// exist, and returns ready to use.
func NewService(ctx context.Context, cfg models.FormanceConfig) (*Service, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = "remittance-escrow"
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	svc := &Service{client: client, ledger: cfg.LedgerName}

	if err := svc.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance service initialized", zap.String("ledger", cfg.LedgerName))
	return svc, nil
}

func (s *Service) ensureLedger(ctx context.Context) error {
	_, err := s.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: s.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "remittance-escrow",
			},
		},
	})
	if err != nil {
		if errorCode(err) == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", s.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", s.ledger))
	return nil
}

// Close is a no-op for the Formance backend (HTTP client needs no teardown).
func (s *Service) Close() error { return nil }

// ---------- helpers ----------

// formanceAsset returns the Formance UMN notation. Every amount in this system
// carries models.AmountScale decimals, e.g. "USDC/7".
func formanceAsset(symbol string) string {
	return fmt.Sprintf("%s/%d", strings.ToUpper(symbol), models.AmountScale)
}

// assetSymbol extracts the symbol from a Formance asset like "USDC/7".
func assetSymbol(fAsset string) string {
	if i := strings.IndexByte(fAsset, '/'); i >= 0 {
		return fAsset[:i]
	}
	return fAsset
}

// accountAddress maps a ledger account onto a Formance address. Plain user
// accounts live under users:, system accounts (escrow:remittance) pass through.
func accountAddress(account string) string {
	if strings.Contains(account, ":") {
		return account
	}
	return "users:" + account
}

func errorCode(err error) shared.V2ErrorsEnum {
	var apiErr *sdkerrors.V2ErrorResponse
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode
	}
	return ""
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	return errorCode(err) == shared.V2ErrorsEnumConflict
}

func isInsufficientFundsError(err error) bool {
	return errorCode(err) == shared.V2ErrorsEnumInsufficientFund
}

func isNotFoundError(err error) bool {
	return errorCode(err) == shared.V2ErrorsEnumNotFound
}

func strPtr(s string) *string { return &s }
