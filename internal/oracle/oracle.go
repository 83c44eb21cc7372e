// Package oracle defines the price-feed boundary of the engine and the
// pricing adapter that turns raw feed rounds into solvency-grade USD prices.
package oracle

import (
	"context"
	"errors"
	"math/big"
	"time"
)

// Round is one price observation from a feed: the raw answer at the feed's
// native decimal precision plus the time the feed last updated.
type Round struct {
	Price     *big.Int
	Decimals  uint8
	UpdatedAt time.Time
}

// PriceFeed supplies the latest round for a single collateral asset.
// Implementations may fail (network, contract revert) or return old rounds;
// freshness is judged by the Adapter, never by the feed itself.
type PriceFeed interface {
	LatestRound(ctx context.Context) (Round, error)
}

// FeedLookup resolves the feed bound to an asset. Satisfied by
// registry.CollateralRegistry.
type FeedLookup interface {
	FeedFor(asset string) (PriceFeed, error)
}

var (
	// ErrStalePrice is returned when the feed's last update is older than
	// the configured staleness bound.
	ErrStalePrice = errors.New("oracle: stale price")

	// ErrOracleUnavailable is returned when the feed call fails or reports
	// a non-positive answer.
	ErrOracleUnavailable = errors.New("oracle: unavailable")
)
