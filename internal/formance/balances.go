package formance

import (
	"context"
	"fmt"
	"math/big"

	"remittance-escrow-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

func (s *Service) Balance(ctx context.Context, account, asset string) (int64, error) {
	zap.L().Debug("Getting balance from Formance",
		zap.String("account", account), zap.String("asset", asset))

	vols, err := s.getAccountVolumes(ctx, accountAddress(account))
	if err != nil {
		return 0, err
	}
	bal := volumeBalance(vols, formanceAsset(asset))
	if bal == nil {
		return 0, nil
	}
	if !bal.IsInt64() {
		return 0, fmt.Errorf("balance of %s overflows int64: %s", account, bal.String())
	}
	return bal.Int64(), nil
}

// GetAccountBalances returns all non-zero balances for an account
func (s *Service) GetAccountBalances(ctx context.Context, account string) ([]models.AccountBalance, error) {
	address := accountAddress(account)
	vols, err := s.getAccountVolumes(ctx, address)
	if err != nil {
		return nil, err
	}

	var balances []models.AccountBalance
	for fAsset := range vols {
		bal := volumeBalance(vols, fAsset)
		if bal == nil || bal.Sign() == 0 || !bal.IsInt64() {
			continue
		}
		balances = append(balances, models.AccountBalance{
			Id:      address + "/" + fAsset,
			Account: account,
			Asset:   assetSymbol(fAsset),
			Balance: bal.Int64(),
		})
	}
	return balances, nil
}

// getAccountVolumes fetches volumes for a single account. An account Formance
// has never seen has no volumes.
func (s *Service) getAccountVolumes(ctx context.Context, address string) (map[string]shared.V2Volume, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		zap.L().Warn("Failed to get account volumes", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return resp.V2AccountResponse.Data.Volumes, nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}
