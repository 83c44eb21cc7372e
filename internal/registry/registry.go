// Package registry holds the fixed set of accepted collateral assets and
// their price-feed bindings. The set is established once at construction and
// never changes afterward; there is no runtime add/remove.
package registry

import (
	"fmt"

	"SynthLedger/internal/oracle"
)

// ErrUnknownAsset is returned for any asset outside the accepted set.
type ErrUnknownAsset struct {
	Asset string
}

func (e ErrUnknownAsset) Error() string {
	return fmt.Sprintf("registry: unknown asset %q", e.Asset)
}

// CollateralRegistry maps asset symbols to price feeds. Iteration order is
// insertion order, which keeps collateral-value summation deterministic.
type CollateralRegistry struct {
	order []string
	feeds map[string]oracle.PriceFeed
}

// New builds a registry from parallel asset/feed slices. The two slices must
// match in length and contain no duplicate or empty symbols.
func New(assets []string, feeds []oracle.PriceFeed) (*CollateralRegistry, error) {
	if len(assets) != len(feeds) {
		return nil, fmt.Errorf("registry: %d assets but %d feeds", len(assets), len(feeds))
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("registry: no collateral assets configured")
	}

	r := &CollateralRegistry{
		order: make([]string, 0, len(assets)),
		feeds: make(map[string]oracle.PriceFeed, len(assets)),
	}

	for i, asset := range assets {
		if asset == "" {
			return nil, fmt.Errorf("registry: empty asset symbol at index %d", i)
		}
		if feeds[i] == nil {
			return nil, fmt.Errorf("registry: nil feed for asset %q", asset)
		}
		if _, dup := r.feeds[asset]; dup {
			return nil, fmt.Errorf("registry: duplicate asset %q", asset)
		}
		r.order = append(r.order, asset)
		r.feeds[asset] = feeds[i]
	}

	return r, nil
}

// IsAccepted reports whether asset is in the collateral set.
func (r *CollateralRegistry) IsAccepted(asset string) bool {
	_, ok := r.feeds[asset]
	return ok
}

// FeedFor returns the feed bound to asset. Implements oracle.FeedLookup.
func (r *CollateralRegistry) FeedFor(asset string) (oracle.PriceFeed, error) {
	feed, ok := r.feeds[asset]
	if !ok {
		return nil, ErrUnknownAsset{Asset: asset}
	}
	return feed, nil
}

// Assets returns the accepted symbols in insertion order. The returned slice
// is a copy.
func (r *CollateralRegistry) Assets() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
