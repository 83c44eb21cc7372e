package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// InvariantValidator checks the ledger's structural invariants. A violation
// here means the engine itself is broken, not that a caller misbehaved.
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{tracker: tracker}
}

// ValidateBatchBalance verifies a batch is well-formed before application.
func (v *InvariantValidator) ValidateBatchBalance(batch *Batch) error {
	return batch.Validate()
}

// ValidateGlobalBalance verifies the ledger is zero-sum per asset.
func (v *InvariantValidator) ValidateGlobalBalance() error {
	for asset, total := range v.tracker.ComputeGlobalBalance() {
		if total.Sign() != 0 {
			return fmt.Errorf("global balance for %s is non-zero: %s", asset, total)
		}
	}
	return nil
}

// ValidateUserNonNegative checks a user's collateral and debt accounts never
// run negative.
func (v *InvariantValidator) ValidateUserNonNegative(user uuid.UUID, asset string) error {
	if b := v.tracker.CollateralBalance(user, asset); b.Sign() < 0 {
		return fmt.Errorf("user %s has negative collateral for %s: %s", user, asset, b)
	}
	if b := v.tracker.DebtBalance(user); b.Sign() < 0 {
		return fmt.Errorf("user %s has negative debt: %s", user, b)
	}
	return nil
}
