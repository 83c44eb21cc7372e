package fixedpoint

import "math/big"

// Overcollateralization parameters. Threshold/precision = 1/2, so collateral
// must be worth at least 2x the outstanding liability; the pair must be kept
// consistent with MinHealthFactor (the wad rendering of 1.0).
var (
	LiquidationThreshold = big.NewInt(50)
	LiquidationPrecision = big.NewInt(100)
	LiquidationBonus     = big.NewInt(10)
	MinHealthFactor      = new(big.Int).Set(Wad)
)

// HealthFactor computes the solvency score of a position:
//
//	((collateralValueUsd * threshold / precision) * 1e18) / liability
//
// with liability == 0 mapping to Infinity. Both inputs are wads. The
// multiply-divide order mirrors the valuation pipeline exactly; do not
// refactor into a single ratio.
func HealthFactor(liability, collateralValueUsd *big.Int) *big.Int {
	if liability == nil || liability.Sign() == 0 {
		return new(big.Int).Set(Infinity)
	}
	adjusted := MulDiv(collateralValueUsd, LiquidationThreshold, LiquidationPrecision)
	return DivWad(adjusted, liability)
}

// BonusCollateral computes the liquidation incentive for a base seizure
// amount: base * bonus / precision.
func BonusCollateral(base *big.Int) *big.Int {
	return MulDiv(base, LiquidationBonus, LiquidationPrecision)
}
