package ingestion

import (
	"encoding/json"
	"fmt"
	"math/big"

	"SynthLedger/internal/event"
)

// ParsePriceUpdate decodes and validates an inbound price message. The price
// travels as a decimal string of the feed's raw integer answer; it must be
// positive, and the asset and timestamp must be present.
func ParsePriceUpdate(data []byte) (*event.PriceUpdated, *big.Int, error) {
	var update event.PriceUpdated
	if err := json.Unmarshal(data, &update); err != nil {
		return nil, nil, fmt.Errorf("decode price update: %w", err)
	}

	if update.CollateralAsset == "" {
		return nil, nil, fmt.Errorf("price update missing asset")
	}
	if update.UpdatedAtMicros <= 0 {
		return nil, nil, fmt.Errorf("price update for %s missing timestamp", update.CollateralAsset)
	}

	price, ok := new(big.Int).SetString(update.Price, 10)
	if !ok {
		return nil, nil, fmt.Errorf("price update for %s has unparseable price %q", update.CollateralAsset, update.Price)
	}
	if price.Sign() <= 0 {
		return nil, nil, fmt.Errorf("price update for %s has non-positive price %s", update.CollateralAsset, update.Price)
	}

	return &update, price, nil
}
