package event

import "time"

// EventType discriminator for operation events.
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeCollateralDeposited
	EventTypeCollateralRedeemed
	EventTypeLiabilityMinted
	EventTypeLiabilityBurned
	EventTypePositionLiquidated
	EventTypePriceUpdated
)

func (et EventType) String() string {
	switch et {
	case EventTypeCollateralDeposited:
		return "CollateralDeposited"
	case EventTypeCollateralRedeemed:
		return "CollateralRedeemed"
	case EventTypeLiabilityMinted:
		return "LiabilityMinted"
	case EventTypeLiabilityBurned:
		return "LiabilityBurned"
	case EventTypePositionLiquidated:
		return "PositionLiquidated"
	case EventTypePriceUpdated:
		return "PriceUpdated"
	default:
		return "Unknown"
	}
}

// Envelope wraps every committed operation in the log.
type Envelope struct {
	// Global monotonic sequence assigned by the engine
	Sequence int64

	// Stable idempotency key of the operation
	IdempotencyKey string

	EventType EventType

	// Asset context (empty for liability-only operations)
	Asset string

	Timestamp time.Time

	// JSON-encoded event payload
	Payload []byte

	// SHA-256 of affected balances AFTER applying this operation
	StateHash [32]byte

	// Previous envelope's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is implemented by all operation payloads.
type Event interface {
	// IdempotencyKey returns the stable dedup key for the log.
	IdempotencyKey() string

	// EventType returns the discriminator.
	EventType() EventType

	// Asset returns the collateral asset context, empty when none.
	Asset() string
}
