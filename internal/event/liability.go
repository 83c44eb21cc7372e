package event

import "github.com/google/uuid"

// LiabilityMinted is emitted after a successful mint.
type LiabilityMinted struct {
	OpID   uuid.UUID `json:"op_id"`
	UserID uuid.UUID `json:"user_id"`
	Amount string    `json:"amount"` // wad, decimal string

	// Health factor of the minter after the operation, wad decimal string.
	HealthFactor string `json:"health_factor"`
}

func (e *LiabilityMinted) IdempotencyKey() string { return e.OpID.String() }
func (e *LiabilityMinted) EventType() EventType   { return EventTypeLiabilityMinted }
func (e *LiabilityMinted) Asset() string          { return "" }

// LiabilityBurned is emitted after a successful burn. Payer and Beneficiary
// coincide for self-burns and differ during liquidation.
type LiabilityBurned struct {
	OpID        uuid.UUID `json:"op_id"`
	Payer       uuid.UUID `json:"payer"`
	Beneficiary uuid.UUID `json:"beneficiary"`
	Amount      string    `json:"amount"`
}

func (e *LiabilityBurned) IdempotencyKey() string { return e.OpID.String() }
func (e *LiabilityBurned) EventType() EventType   { return EventTypeLiabilityBurned }
func (e *LiabilityBurned) Asset() string          { return "" }
