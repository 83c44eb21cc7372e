package engine

import (
	"context"
	"math/big"

	"github.com/google/uuid"

	"SynthLedger/internal/fixedpoint"
)

// AccountInformation is the solvency view of one position.
type AccountInformation struct {
	Liability          *big.Int
	CollateralValueUsd *big.Int
}

// GetAccountInformation returns the user's total liability and the USD value
// of all deposited collateral at current prices.
func (e *Engine) GetAccountInformation(ctx context.Context, user uuid.UUID) (AccountInformation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	value, err := e.collateralValueLocked(ctx, user)
	if err != nil {
		return AccountInformation{}, err
	}
	return AccountInformation{
		Liability:          e.tracker.DebtBalance(user),
		CollateralValueUsd: value,
	}, nil
}

// GetCollateralBalance returns the user's deposited balance of one asset.
func (e *Engine) GetCollateralBalance(user uuid.UUID, asset string) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.CollateralBalance(user, asset)
}

// GetLiability returns the user's outstanding synthetic debt.
func (e *Engine) GetLiability(user uuid.UUID) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.DebtBalance(user)
}

// GetHealthFactor returns the user's current health factor at live prices.
func (e *Engine) GetHealthFactor(ctx context.Context, user uuid.UUID) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.healthFactorLocked(ctx, user)
}

// GetUsdValue prices a wad amount of asset in USD.
func (e *Engine) GetUsdValue(ctx context.Context, asset string, amount *big.Int) (*big.Int, error) {
	return e.pricing.UsdValue(ctx, asset, amount)
}

// GetTokenAmountFromUsd converts a wad USD value into a wad asset quantity.
func (e *Engine) GetTokenAmountFromUsd(ctx context.Context, asset string, usd *big.Int) (*big.Int, error) {
	return e.pricing.TokenAmountFromUsd(ctx, asset, usd)
}

// ListCollateralAssets returns the accepted assets in registry order.
func (e *Engine) ListCollateralAssets() []string {
	return e.registry.Assets()
}

// CustodyRequired returns the total of asset the vault is expected to hold
// according to the ledger.
func (e *Engine) CustodyRequired(asset string) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.CustodyRequired(asset)
}

// CalculateHealthFactor is the pure solvency formula: no state, no prices,
// no side effects. Identical inputs always produce identical output.
func CalculateHealthFactor(liability, collateralValueUsd *big.Int) *big.Int {
	return fixedpoint.HealthFactor(liability, collateralValueUsd)
}
