package formance

import (
	"context"
	"fmt"
	"strconv"

	"remittance-escrow-go/internal/models"
	"remittance-escrow-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Numscript templates. All metadata is set inside the script via set_tx_meta()
// so the Formance transaction is fully self-describing.

// numscriptTransfer fails with INSUFFICIENT_FUND when $source cannot cover the amount.
const numscriptTransfer = `vars {
  asset $asset
  number $amount
  account $source
  account $destination
  string $kind
  string $asset_symbol
}

send [$asset $amount] (
  source = $source
  destination = $destination
)

set_tx_meta("event_type", $kind)
set_tx_meta("asset_symbol", $asset_symbol)
`

const numscriptCredit = `vars {
  asset $asset
  number $amount
  account $destination
  string $asset_symbol
}

send [$asset $amount] (
  source = @world
  destination = $destination
)

set_tx_meta("event_type", "faucet")
set_tx_meta("asset_symbol", $asset_symbol)
`

func (s *Service) Transfer(ctx context.Context, params store.TransferParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	postTx := shared.V2PostTransaction{
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptTransfer,
			Vars: map[string]string{
				"asset":        formanceAsset(params.Asset),
				"amount":       strconv.FormatInt(params.Amount, 10),
				"source":       accountAddress(params.Source),
				"destination":  accountAddress(params.Destination),
				"kind":         params.Kind,
				"asset_symbol": params.Asset,
			},
		},
	}
	if params.Reference != "" {
		postTx.Reference = strPtr(params.Reference)
	}

	if err := s.post(ctx, postTx, params.Reference); err != nil {
		return err
	}

	zap.L().Info("Transfer recorded in Formance",
		zap.String("reference", params.Reference),
		zap.String("source", params.Source),
		zap.String("destination", params.Destination),
		zap.String("asset", params.Asset),
		zap.Int64("amount", params.Amount))
	return nil
}

func (s *Service) Credit(ctx context.Context, account, asset string, amount int64, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	postTx := shared.V2PostTransaction{
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptCredit,
			Vars: map[string]string{
				"asset":        formanceAsset(asset),
				"amount":       strconv.FormatInt(amount, 10),
				"destination":  accountAddress(account),
				"asset_symbol": asset,
			},
		},
	}
	if reference != "" {
		postTx.Reference = strPtr(reference)
	}

	if err := s.post(ctx, postTx, reference); err != nil {
		return err
	}

	zap.L().Info("Credit recorded in Formance",
		zap.String("account", account),
		zap.String("asset", asset),
		zap.Int64("amount", amount))
	return nil
}

func (s *Service) post(ctx context.Context, postTx shared.V2PostTransaction, reference string) error {
	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err == nil {
		return nil
	}
	switch {
	case isConflictError(err):
		return fmt.Errorf("%w: reference %s already exists", store.ErrDuplicateTransaction, reference)
	case isInsufficientFundsError(err):
		return fmt.Errorf("%w: %v", store.ErrInsufficientFunds, err)
	default:
		return fmt.Errorf("error posting formance transaction: %w", err)
	}
}

// GetTransactionHistory returns transfers touching an account for one asset, newest first.
func (s *Service) GetTransactionHistory(ctx context.Context, account, asset string, limit, offset int) ([]models.LedgerTransaction, error) {
	if limit <= 0 || offset < 0 {
		return nil, nil
	}
	address := accountAddress(account)
	pageSize := int64(limit + offset) // fetch enough to skip offset

	resp, err := s.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
		Ledger:   s.ledger,
		PageSize: &pageSize,
		RequestBody: map[string]any{
			"$or": []any{
				map[string]any{"$match": map[string]any{"source": address}},
				map[string]any{"$match": map[string]any{"destination": address}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return historyPage(resp.V2TransactionsCursorResponse.Cursor.Data, address, asset, limit, offset), nil
}

// historyPage flattens postings of asset that touch address, then skips
// offset of them and keeps at most limit.
func historyPage(txs []shared.V2Transaction, address, asset string, limit, offset int) []models.LedgerTransaction {
	var result []models.LedgerTransaction
	skipped := 0
	for _, tx := range txs {
		for _, p := range tx.Postings {
			if assetSymbol(p.Asset) != asset || p.Amount == nil {
				continue
			}
			if p.Source != address && p.Destination != address {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}

			ref := ""
			if tx.Reference != nil {
				ref = *tx.Reference
			}
			result = append(result, models.LedgerTransaction{
				Id:          fmt.Sprintf("%d", tx.ID),
				Reference:   ref,
				Asset:       asset,
				Source:      p.Source,
				Destination: p.Destination,
				Amount:      p.Amount.Int64(),
				Kind:        tx.Metadata["event_type"],
				CreatedAt:   tx.Timestamp,
			})
			if len(result) >= limit {
				return result
			}
		}
	}
	return result
}
