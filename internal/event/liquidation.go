package event

import "github.com/google/uuid"

// PositionLiquidated is emitted after a successful liquidation: debtToCover
// of the target's liability retired by the liquidator in exchange for seized
// collateral plus bonus.
type PositionLiquidated struct {
	OpID            uuid.UUID `json:"op_id"`
	Liquidator      uuid.UUID `json:"liquidator"`
	Target          uuid.UUID `json:"target"`
	CollateralAsset string    `json:"asset"`
	DebtCovered     string    `json:"debt_covered"`     // wad, decimal string
	SeizedBase      string    `json:"seized_base"`      // collateral for debt at spot
	SeizedBonus     string    `json:"seized_bonus"`     // liquidation incentive
	StartingFactor  string    `json:"starting_factor"`  // target HF before
	EndingFactor    string    `json:"ending_factor"`    // target HF after
}

func (e *PositionLiquidated) IdempotencyKey() string { return e.OpID.String() }
func (e *PositionLiquidated) EventType() EventType   { return EventTypePositionLiquidated }
func (e *PositionLiquidated) Asset() string          { return e.CollateralAsset }
