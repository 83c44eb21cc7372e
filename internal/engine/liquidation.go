package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"SynthLedger/internal/event"
	"SynthLedger/internal/fixedpoint"
	"SynthLedger/internal/ledger"
)

const opLiquidate = "liquidate"

// Liquidate lets the liquidator retire debtToCover of the target's liability
// in exchange for the equivalent collateral in the chosen asset plus a 10%
// bonus. The target must be below the minimum health factor before, strictly
// improved after, and the liquidator's own position must stay healthy.
//
// The seizure is scoped to a single collateral asset: a target whose balance
// of that asset cannot cover the payout fails the operation even when other
// assets could. Liquidators choose the asset accordingly.
func (e *Engine) Liquidate(ctx context.Context, liquidator, target uuid.UUID, asset string, debtToCover *big.Int) error {
	start := time.Now()
	defer e.observeDuration(opLiquidate, start)

	if !fixedpoint.IsPositive(debtToCover) {
		return e.reject(opLiquidate, "invalid_amount", ErrInvalidAmount)
	}
	if err := e.requireAccepted(asset); err != nil {
		return e.reject(opLiquidate, "unknown_asset", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	startingFactor, err := e.healthFactorLocked(ctx, target)
	if err != nil {
		return e.reject(opLiquidate, "oracle", err)
	}
	if startingFactor.Cmp(fixedpoint.MinHealthFactor) >= 0 {
		return e.reject(opLiquidate, "target_healthy", ErrHealthFactorOk)
	}

	// The synthetic is unit-pegged, so debtToCover doubles as the USD value
	// of the debt being retired.
	seizedBase, err := e.pricing.TokenAmountFromUsd(ctx, asset, debtToCover)
	if err != nil {
		e.notePriceError(asset, err)
		return e.reject(opLiquidate, "oracle", err)
	}
	seizedBonus := fixedpoint.BonusCollateral(seizedBase)
	seizedTotal := new(big.Int).Add(seizedBase, seizedBonus)

	opID := uuid.New()
	ts := e.now()

	seizeBatch, err := e.journals.Redeem(target, asset, seizedTotal, ledger.JournalTypeLiquidationSeize, opID.String(), e.sequence, ts.UnixMicro())
	if err != nil {
		return e.reject(opLiquidate, "insufficient_collateral", err)
	}
	if err := e.tracker.ApplyBatch(seizeBatch); err != nil {
		return e.reject(opLiquidate, "invalid_batch", err)
	}

	burnBatch, err := e.journals.Burn(target, debtToCover, ledger.JournalTypeLiquidationBurn, opID.String(), e.sequence, ts.UnixMicro())
	if err != nil {
		e.tracker.RevertBatch(seizeBatch)
		return e.reject(opLiquidate, "insufficient_debt", err)
	}
	if err := e.tracker.ApplyBatch(burnBatch); err != nil {
		e.tracker.RevertBatch(seizeBatch)
		return e.reject(opLiquidate, "invalid_batch", err)
	}

	revertBoth := func() {
		e.tracker.RevertBatch(burnBatch)
		e.tracker.RevertBatch(seizeBatch)
	}

	endingFactor, err := e.healthFactorLocked(ctx, target)
	if err != nil {
		revertBoth()
		return e.reject(opLiquidate, "oracle", err)
	}
	if endingFactor.Cmp(startingFactor) <= 0 {
		revertBoth()
		return e.reject(opLiquidate, "not_improved", ErrHealthFactorNotImproved)
	}

	if err := e.requireHealthyLocked(ctx, liquidator); err != nil {
		revertBoth()
		return e.reject(opLiquidate, "liquidator_health", err)
	}

	// External legs last: pull and destroy the liquidator's synthetic, then
	// release the seized collateral. A failed release re-mints the already
	// burned tokens so the liquidator is made whole.
	if err := e.pullAndBurnTokens(ctx, liquidator, debtToCover); err != nil {
		revertBoth()
		return e.reject(opLiquidate, "token_transfer", err)
	}
	if err := e.vault.Push(ctx, liquidator, asset, seizedTotal); err != nil {
		revertBoth()
		if merr := e.dsc.Mint(ctx, liquidator, debtToCover); merr != nil {
			e.log.Error().Err(merr).Str("liquidator", liquidator.String()).
				Msg("failed to re-mint after collateral release failure")
		}
		return e.reject(opLiquidate, "vault_push", fmt.Errorf("%w: vault push: %v", ErrTransferFailed, err))
	}

	if e.metrics != nil {
		e.metrics.LiquidationsApplied.Inc()
		seizedUnits, _ := new(big.Float).Quo(
			new(big.Float).SetInt(seizedTotal),
			new(big.Float).SetInt(fixedpoint.Wad),
		).Float64()
		debtUnits, _ := new(big.Float).Quo(
			new(big.Float).SetInt(debtToCover),
			new(big.Float).SetInt(fixedpoint.Wad),
		).Float64()
		e.metrics.CollateralSeized.WithLabelValues(asset).Add(seizedUnits)
		e.metrics.DebtRetired.Add(debtUnits)
	}

	e.commit(opLiquidate, &event.PositionLiquidated{
		OpID:            opID,
		Liquidator:      liquidator,
		Target:          target,
		CollateralAsset: asset,
		DebtCovered:     fixedpoint.String(debtToCover),
		SeizedBase:      fixedpoint.String(seizedBase),
		SeizedBonus:     fixedpoint.String(seizedBonus),
		StartingFactor:  fixedpoint.String(startingFactor),
		EndingFactor:    fixedpoint.String(endingFactor),
	}, []*ledger.Batch{seizeBatch, burnBatch}, ts)
	return nil
}
