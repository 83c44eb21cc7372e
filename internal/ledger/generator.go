package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// Underflow sentinels. Moving more than an account holds is treated as a
// caller error and always fails the operation; balances are never clamped.
var (
	ErrInsufficientCollateral = errors.New("ledger: collateral balance underflow")
	ErrInsufficientDebt       = errors.New("ledger: debt balance underflow")
)

// JournalGenerator builds the journal batch for each engine operation. It
// reads the tracker for underflow enforcement: redeem and burn batches are
// refused when they would drive a user account negative, which is the single
// enforcement point preventing withdrawal beyond deposited funds.
type JournalGenerator struct {
	tracker *BalanceTracker
}

func NewJournalGenerator(tracker *BalanceTracker) *JournalGenerator {
	return &JournalGenerator{tracker: tracker}
}

// Deposit credits a user's collateral against the custody boundary.
func (g *JournalGenerator) Deposit(user uuid.UUID, asset string, amount *big.Int, opRef string, seq, ts int64) *Batch {
	batchID := uuid.New()
	return &Batch{
		BatchID:   batchID,
		OpRef:     opRef,
		Sequence:  seq,
		Timestamp: ts,
		Journals: []Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			OpRef:         opRef,
			Sequence:      seq,
			DebitAccount:  NewCollateralKey(user, asset),
			CreditAccount: NewCustodyKey(asset),
			Asset:         asset,
			Amount:        new(big.Int).Set(amount),
			JournalType:   JournalTypeDeposit,
			Timestamp:     ts,
		}},
	}
}

// Redeem debits a user's collateral back across the custody boundary.
// jt distinguishes self-redemption from a liquidation seizure.
func (g *JournalGenerator) Redeem(user uuid.UUID, asset string, amount *big.Int, jt JournalType, opRef string, seq, ts int64) (*Batch, error) {
	held := g.tracker.CollateralBalance(user, asset)
	if held.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: user %s holds %s of %s, tried to move %s",
			ErrInsufficientCollateral, user, held, asset, amount)
	}

	batchID := uuid.New()
	return &Batch{
		BatchID:   batchID,
		OpRef:     opRef,
		Sequence:  seq,
		Timestamp: ts,
		Journals: []Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			OpRef:         opRef,
			Sequence:      seq,
			DebitAccount:  NewCustodyKey(asset),
			CreditAccount: NewCollateralKey(user, asset),
			Asset:         asset,
			Amount:        new(big.Int).Set(amount),
			JournalType:   jt,
			Timestamp:     ts,
		}},
	}, nil
}

// Mint records new liability against the issuance counter-account.
func (g *JournalGenerator) Mint(user uuid.UUID, amount *big.Int, opRef string, seq, ts int64) *Batch {
	batchID := uuid.New()
	return &Batch{
		BatchID:   batchID,
		OpRef:     opRef,
		Sequence:  seq,
		Timestamp: ts,
		Journals: []Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			OpRef:         opRef,
			Sequence:      seq,
			DebitAccount:  NewDebtKey(user),
			CreditAccount: NewDebtIssuedKey(),
			Asset:         DebtAsset,
			Amount:        new(big.Int).Set(amount),
			JournalType:   JournalTypeMint,
			Timestamp:     ts,
		}},
	}
}

// Burn retires liability of the beneficiary. jt distinguishes self-burn from
// the liquidation debt reduction.
func (g *JournalGenerator) Burn(beneficiary uuid.UUID, amount *big.Int, jt JournalType, opRef string, seq, ts int64) (*Batch, error) {
	owed := g.tracker.DebtBalance(beneficiary)
	if owed.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: user %s owes %s, tried to retire %s",
			ErrInsufficientDebt, beneficiary, owed, amount)
	}

	batchID := uuid.New()
	return &Batch{
		BatchID:   batchID,
		OpRef:     opRef,
		Sequence:  seq,
		Timestamp: ts,
		Journals: []Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			OpRef:         opRef,
			Sequence:      seq,
			DebitAccount:  NewDebtIssuedKey(),
			CreditAccount: NewDebtKey(beneficiary),
			Asset:         DebtAsset,
			Amount:        new(big.Int).Set(amount),
			JournalType:   jt,
			Timestamp:     ts,
		}},
	}, nil
}
