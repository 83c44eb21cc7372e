package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"SynthLedger/internal/event"
	"SynthLedger/internal/fixedpoint"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/token"
)

const (
	opDeposit = "deposit_collateral"
	opRedeem  = "redeem_collateral"
	opMint    = "mint_liability"
	opBurn    = "burn_liability"
)

// DepositCollateral moves amount of asset from the user's wallet into engine
// custody and credits the user's collateral balance.
func (e *Engine) DepositCollateral(ctx context.Context, user uuid.UUID, asset string, amount *big.Int) error {
	start := time.Now()
	defer e.observeDuration(opDeposit, start)

	if !fixedpoint.IsPositive(amount) {
		return e.reject(opDeposit, "invalid_amount", ErrInvalidAmount)
	}
	if err := e.requireAccepted(asset); err != nil {
		return e.reject(opDeposit, "unknown_asset", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	opID := uuid.New()
	ts := e.now()
	batch := e.journals.Deposit(user, asset, amount, opID.String(), e.sequence, ts.UnixMicro())
	if err := e.tracker.ApplyBatch(batch); err != nil {
		return e.reject(opDeposit, "invalid_batch", err)
	}

	if err := e.vault.Pull(ctx, user, asset, amount); err != nil {
		e.tracker.RevertBatch(batch)
		return e.reject(opDeposit, "vault_pull", fmt.Errorf("%w: vault pull: %v", ErrTransferFailed, err))
	}

	e.commit(opDeposit, &event.CollateralDeposited{
		OpID:            opID,
		UserID:          user,
		CollateralAsset: asset,
		Amount:          fixedpoint.String(amount),
	}, []*ledger.Batch{batch}, ts)
	return nil
}

// RedeemCollateral returns amount of asset to the user's wallet. The
// resulting position must remain at or above the minimum health factor; the
// check runs before the outbound vault push so a refused redemption has no
// observable effect.
func (e *Engine) RedeemCollateral(ctx context.Context, user uuid.UUID, asset string, amount *big.Int) error {
	start := time.Now()
	defer e.observeDuration(opRedeem, start)

	if !fixedpoint.IsPositive(amount) {
		return e.reject(opRedeem, "invalid_amount", ErrInvalidAmount)
	}
	if err := e.requireAccepted(asset); err != nil {
		return e.reject(opRedeem, "unknown_asset", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	opID := uuid.New()
	ts := e.now()
	batch, err := e.journals.Redeem(user, asset, amount, ledger.JournalTypeRedeem, opID.String(), e.sequence, ts.UnixMicro())
	if err != nil {
		return e.reject(opRedeem, "insufficient_collateral", err)
	}
	if err := e.tracker.ApplyBatch(batch); err != nil {
		return e.reject(opRedeem, "invalid_batch", err)
	}

	if err := e.requireHealthyLocked(ctx, user); err != nil {
		e.tracker.RevertBatch(batch)
		return e.reject(opRedeem, redeemRejectReason(err), err)
	}

	if err := e.vault.Push(ctx, user, asset, amount); err != nil {
		e.tracker.RevertBatch(batch)
		return e.reject(opRedeem, "vault_push", fmt.Errorf("%w: vault push: %v", ErrTransferFailed, err))
	}

	e.commit(opRedeem, &event.CollateralRedeemed{
		OpID:            opID,
		UserID:          user,
		CollateralAsset: asset,
		Amount:          fixedpoint.String(amount),
		Recipient:       user,
	}, []*ledger.Batch{batch}, ts)
	return nil
}

// MintLiability issues amount of the synthetic to the user. The post-mint
// position must be at or above the minimum health factor.
func (e *Engine) MintLiability(ctx context.Context, user uuid.UUID, amount *big.Int) error {
	start := time.Now()
	defer e.observeDuration(opMint, start)

	if !fixedpoint.IsPositive(amount) {
		return e.reject(opMint, "invalid_amount", ErrInvalidAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	opID := uuid.New()
	ts := e.now()
	batch := e.journals.Mint(user, amount, opID.String(), e.sequence, ts.UnixMicro())
	if err := e.tracker.ApplyBatch(batch); err != nil {
		return e.reject(opMint, "invalid_batch", err)
	}

	factor, err := e.healthFactorLocked(ctx, user)
	if err != nil {
		e.tracker.RevertBatch(batch)
		return e.reject(opMint, "oracle", err)
	}
	if factor.Cmp(fixedpoint.MinHealthFactor) < 0 {
		e.tracker.RevertBatch(batch)
		if e.metrics != nil {
			e.metrics.HealthChecks.WithLabelValues("broken").Inc()
		}
		return e.reject(opMint, "health_factor", BrokenHealthFactorError{Factor: factor})
	}
	if e.metrics != nil {
		e.metrics.HealthChecks.WithLabelValues("ok").Inc()
	}

	if err := e.dsc.Mint(ctx, user, amount); err != nil {
		e.tracker.RevertBatch(batch)
		return e.reject(opMint, "token_mint", fmt.Errorf("%w: %v", ErrMintFailed, err))
	}

	e.commit(opMint, &event.LiabilityMinted{
		OpID:         opID,
		UserID:       user,
		Amount:       fixedpoint.String(amount),
		HealthFactor: fixedpoint.String(factor),
	}, []*ledger.Batch{batch}, ts)
	return nil
}

// BurnLiability retires amount of the user's own liability, pulling the
// tokens from the user's wallet.
func (e *Engine) BurnLiability(ctx context.Context, user uuid.UUID, amount *big.Int) error {
	start := time.Now()
	defer e.observeDuration(opBurn, start)

	if !fixedpoint.IsPositive(amount) {
		return e.reject(opBurn, "invalid_amount", ErrInvalidAmount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	opID := uuid.New()
	ts := e.now()
	batch, err := e.journals.Burn(user, amount, ledger.JournalTypeBurn, opID.String(), e.sequence, ts.UnixMicro())
	if err != nil {
		return e.reject(opBurn, "insufficient_debt", err)
	}
	if err := e.tracker.ApplyBatch(batch); err != nil {
		return e.reject(opBurn, "invalid_batch", err)
	}

	// A partial burn of an already-underwater position leaves the factor
	// below minimum and is refused; only full recovery goes through.
	if err := e.requireHealthyLocked(ctx, user); err != nil {
		e.tracker.RevertBatch(batch)
		return e.reject(opBurn, redeemRejectReason(err), err)
	}

	if err := e.pullAndBurnTokens(ctx, user, amount); err != nil {
		e.tracker.RevertBatch(batch)
		return e.reject(opBurn, "token_transfer", err)
	}

	e.commit(opBurn, &event.LiabilityBurned{
		OpID:        opID,
		Payer:       user,
		Beneficiary: user,
		Amount:      fixedpoint.String(amount),
	}, []*ledger.Batch{batch}, ts)
	return nil
}

// pullAndBurnTokens moves amount of the synthetic from the payer's wallet
// into the engine account and destroys it. A burn failure after the pull
// returns the pulled tokens before reporting the error.
func (e *Engine) pullAndBurnTokens(ctx context.Context, payer uuid.UUID, amount *big.Int) error {
	if err := e.dsc.Transfer(ctx, payer, token.EngineAccount, amount); err != nil {
		return fmt.Errorf("%w: token pull: %v", ErrTransferFailed, err)
	}
	if err := e.dsc.Burn(ctx, token.EngineAccount, amount); err != nil {
		if rerr := e.dsc.Transfer(ctx, token.EngineAccount, payer, amount); rerr != nil {
			e.log.Error().Err(rerr).Str("payer", payer.String()).
				Msg("failed to return pulled tokens after burn failure")
		}
		return fmt.Errorf("%w: token burn: %v", ErrTransferFailed, err)
	}
	return nil
}

// DepositCollateralAndMint deposits collateral and mints liability in one
// call. The deposit commits on its own; a refused mint leaves the deposit in
// place, which the caller can redeem at will.
func (e *Engine) DepositCollateralAndMint(ctx context.Context, user uuid.UUID, asset string, collateralAmount, mintAmount *big.Int) error {
	if err := e.DepositCollateral(ctx, user, asset, collateralAmount); err != nil {
		return err
	}
	return e.MintLiability(ctx, user, mintAmount)
}

// RedeemCollateralForDsc burns liability first, then redeems collateral, so
// the health check on the redemption sees the reduced debt.
func (e *Engine) RedeemCollateralForDsc(ctx context.Context, user uuid.UUID, asset string, collateralAmount, burnAmount *big.Int) error {
	if err := e.BurnLiability(ctx, user, burnAmount); err != nil {
		return err
	}
	return e.RedeemCollateral(ctx, user, asset, collateralAmount)
}

func redeemRejectReason(err error) string {
	var broken BrokenHealthFactorError
	if errors.As(err, &broken) {
		return "health_factor"
	}
	return "oracle"
}
