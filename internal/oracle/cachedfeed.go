package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"
)

// ErrNoObservation is returned by a CachedFeed that has not received any
// price yet.
var ErrNoObservation = errors.New("oracle: no price observed yet")

// CachedFeed is a PriceFeed fed by an external publisher (the NATS price
// subscriber). It stores the most recent observation together with the
// publisher's timestamp; the Adapter decides whether that observation is
// still fresh enough to drive solvency math. The feed itself never infers
// freshness.
type CachedFeed struct {
	mu   sync.RWMutex
	last Round
	seen bool
}

func NewCachedFeed() *CachedFeed {
	return &CachedFeed{}
}

// Observe records a new price round. The update is dropped when it is older
// than the held one so out-of-order deliveries cannot rewind the feed.
func (f *CachedFeed) Observe(price *big.Int, decimals uint8, updatedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen && updatedAt.Before(f.last.UpdatedAt) {
		return
	}
	f.last = Round{
		Price:     new(big.Int).Set(price),
		Decimals:  decimals,
		UpdatedAt: updatedAt,
	}
	f.seen = true
}

// LatestRound implements PriceFeed.
func (f *CachedFeed) LatestRound(context.Context) (Round, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.seen {
		return Round{}, ErrNoObservation
	}
	return Round{
		Price:     new(big.Int).Set(f.last.Price),
		Decimals:  f.last.Decimals,
		UpdatedAt: f.last.UpdatedAt,
	}, nil
}
