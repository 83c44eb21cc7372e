// Package token declares the external value-moving collaborators of the
// engine: the liability token and the collateral vault. The engine owns all
// balance accounting; these interfaces only move value in and out of custody
// and may fail synchronously.
package token

import (
	"context"
	"math/big"

	"github.com/google/uuid"
)

// LiabilityToken is the unit-pegged synthetic asset. Mint and Burn are
// controlled exclusively by the engine; users move tokens among themselves
// outside the engine, so the engine pulls tokens from a payer before burning.
type LiabilityToken interface {
	// Mint credits amount of liability token to the recipient.
	Mint(ctx context.Context, to uuid.UUID, amount *big.Int) error

	// Transfer moves tokens between holders. Used to pull a payer's tokens
	// into the engine before a burn.
	Transfer(ctx context.Context, from, to uuid.UUID, amount *big.Int) error

	// Burn destroys amount held by holder.
	Burn(ctx context.Context, holder uuid.UUID, amount *big.Int) error

	// BalanceOf returns the holder's current token balance.
	BalanceOf(ctx context.Context, holder uuid.UUID) (*big.Int, error)
}

// CollateralVault custodies deposited collateral. Pull moves asset from a
// user into engine custody, Push moves it out to a recipient. The engine
// updates its own ledger before calling either, so a reentrant call during a
// transfer observes post-update state.
type CollateralVault interface {
	Pull(ctx context.Context, from uuid.UUID, asset string, amount *big.Int) error
	Push(ctx context.Context, to uuid.UUID, asset string, amount *big.Int) error

	// CustodiedBalance returns the total amount of asset held by the vault.
	CustodiedBalance(ctx context.Context, asset string) (*big.Int, error)
}

// EngineAccount is the token holder id under which the engine itself holds
// pulled liability tokens for the instant between Transfer and Burn.
var EngineAccount = uuid.MustParse("00000000-0000-0000-0000-00000000e491")
