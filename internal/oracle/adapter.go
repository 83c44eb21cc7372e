package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"SynthLedger/internal/fixedpoint"
)

// Adapter converts raw feed rounds into wad USD prices and rejects unusable
// data. Every price read that drives a mint, redeem, or liquidation decision
// goes through here; there is no cached result a stale feed could hide
// behind.
type Adapter struct {
	feeds  FeedLookup
	maxAge time.Duration
	now    func() time.Time
}

// NewAdapter binds the adapter to a feed lookup with the given staleness
// bound. A zero or negative maxAge is rejected: an unbounded window would
// make ErrStalePrice unreachable.
func NewAdapter(feeds FeedLookup, maxAge time.Duration) (*Adapter, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("oracle: staleness bound must be positive, got %v", maxAge)
	}
	return &Adapter{
		feeds:  feeds,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// UsdPricePerUnit returns the wad USD price of one unit of asset.
func (a *Adapter) UsdPricePerUnit(ctx context.Context, asset string) (*big.Int, error) {
	feed, err := a.feeds.FeedFor(asset)
	if err != nil {
		return nil, err
	}

	round, err := feed.LatestRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOracleUnavailable, asset, err)
	}
	if round.Price == nil || round.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s reported non-positive price", ErrOracleUnavailable, asset)
	}

	age := a.now().Sub(round.UpdatedAt)
	if age > a.maxAge {
		return nil, fmt.Errorf("%w: %s last updated %v ago (bound %v)",
			ErrStalePrice, asset, age.Truncate(time.Second), a.maxAge)
	}

	price, err := fixedpoint.ScaleToWad(round.Price, round.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOracleUnavailable, asset, err)
	}
	return price, nil
}

// UsdValue prices a wad token amount: price * amount / 1e18.
func (a *Adapter) UsdValue(ctx context.Context, asset string, amount *big.Int) (*big.Int, error) {
	price, err := a.UsdPricePerUnit(ctx, asset)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulWad(price, amount), nil
}

// TokenAmountFromUsd is the inverse conversion: usd * 1e18 / price. Used to
// turn a USD-denominated debt-to-cover into a concrete collateral quantity.
func (a *Adapter) TokenAmountFromUsd(ctx context.Context, asset string, usd *big.Int) (*big.Int, error) {
	price, err := a.UsdPricePerUnit(ctx, asset)
	if err != nil {
		return nil, err
	}
	return fixedpoint.DivWad(usd, price), nil
}

// SetClock overrides the adapter's wall clock. Test hook.
func (a *Adapter) SetClock(now func() time.Time) {
	a.now = now
}
