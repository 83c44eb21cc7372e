package engine

import (
	"errors"
	"fmt"
	"math/big"

	"SynthLedger/internal/fixedpoint"
)

var (
	// ErrInvalidAmount rejects zero or negative amounts on any operation.
	ErrInvalidAmount = errors.New("engine: amount must be positive")

	// ErrHealthFactorOk rejects liquidation of a solvent position.
	ErrHealthFactorOk = errors.New("engine: target health factor is not below minimum")

	// ErrHealthFactorNotImproved rejects a liquidation whose net effect did
	// not strictly raise the target's health factor.
	ErrHealthFactorNotImproved = errors.New("engine: liquidation did not improve target health factor")

	// ErrMintFailed wraps a liability token mint refusal.
	ErrMintFailed = errors.New("engine: liability token mint failed")

	// ErrTransferFailed wraps a failed token or vault transfer.
	ErrTransferFailed = errors.New("engine: transfer failed")
)

// BrokenHealthFactorError reports the offending factor so callers can see how
// far below the minimum the position would land.
type BrokenHealthFactorError struct {
	Factor *big.Int
}

func (e BrokenHealthFactorError) Error() string {
	return fmt.Sprintf("engine: health factor %s below minimum %s",
		fixedpoint.String(e.Factor), fixedpoint.String(fixedpoint.MinHealthFactor))
}
