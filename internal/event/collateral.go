package event

import (
	"fmt"

	"github.com/google/uuid"
)

// CollateralDeposited is emitted after a successful deposit.
type CollateralDeposited struct {
	OpID           uuid.UUID `json:"op_id"`
	UserID         uuid.UUID `json:"user_id"`
	CollateralAsset string   `json:"asset"`
	Amount         string    `json:"amount"` // wad, decimal string
}

func (e *CollateralDeposited) IdempotencyKey() string { return e.OpID.String() }
func (e *CollateralDeposited) EventType() EventType   { return EventTypeCollateralDeposited }
func (e *CollateralDeposited) Asset() string          { return e.CollateralAsset }

// CollateralRedeemed is emitted after a successful self-redemption.
type CollateralRedeemed struct {
	OpID            uuid.UUID `json:"op_id"`
	UserID          uuid.UUID `json:"user_id"`
	CollateralAsset string    `json:"asset"`
	Amount          string    `json:"amount"`
	Recipient       uuid.UUID `json:"recipient"`
}

func (e *CollateralRedeemed) IdempotencyKey() string { return e.OpID.String() }
func (e *CollateralRedeemed) EventType() EventType   { return EventTypeCollateralRedeemed }
func (e *CollateralRedeemed) Asset() string          { return e.CollateralAsset }

// PriceUpdated is the inbound price observation consumed from NATS. It never
// enters the operation log; it only feeds the cached price feeds.
type PriceUpdated struct {
	UpdateID        uuid.UUID `json:"update_id"`
	CollateralAsset string    `json:"asset"`
	Price           string    `json:"price"` // raw feed integer, decimal string
	Decimals        uint8     `json:"decimals"`
	UpdatedAtMicros int64     `json:"updated_at_us"`
}

func (e *PriceUpdated) IdempotencyKey() string {
	return fmt.Sprintf("price:%s:%d", e.CollateralAsset, e.UpdatedAtMicros)
}
func (e *PriceUpdated) EventType() EventType { return EventTypePriceUpdated }
func (e *PriceUpdated) Asset() string        { return e.CollateralAsset }
