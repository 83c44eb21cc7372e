package ledger

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// BalanceTracker maintains the in-memory account balances. Amounts are wads
// in big.Int; the map values are owned by the tracker and copied on read.
type BalanceTracker struct {
	balances map[AccountKey]*big.Int
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{
		balances: make(map[AccountKey]*big.Int),
	}
}

// ApplyJournal applies a single entry: debit increases, credit decreases.
func (bt *BalanceTracker) ApplyJournal(j Journal) {
	bt.add(j.DebitAccount, j.Amount)
	bt.sub(j.CreditAccount, j.Amount)
}

// ApplyBatch validates and applies all journals in a batch.
func (bt *BalanceTracker) ApplyBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}
	for _, j := range batch.Journals {
		bt.ApplyJournal(j)
	}
	return nil
}

// RevertBatch undoes a previously applied batch by applying each journal
// inverted, in reverse order. The engine uses this to make failed operations
// leave zero observable state.
func (bt *BalanceTracker) RevertBatch(batch *Batch) {
	for i := len(batch.Journals) - 1; i >= 0; i-- {
		j := batch.Journals[i]
		bt.sub(j.DebitAccount, j.Amount)
		bt.add(j.CreditAccount, j.Amount)
	}
}

// GetBalance returns a copy of the account's current balance.
func (bt *BalanceTracker) GetBalance(key AccountKey) *big.Int {
	if b, ok := bt.balances[key]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// CollateralBalance returns a user's deposited balance of one asset.
func (bt *BalanceTracker) CollateralBalance(user uuid.UUID, asset string) *big.Int {
	return bt.GetBalance(NewCollateralKey(user, asset))
}

// DebtBalance returns a user's outstanding liability.
func (bt *BalanceTracker) DebtBalance(user uuid.UUID) *big.Int {
	return bt.GetBalance(NewDebtKey(user))
}

// CustodyRequired returns the total of an asset the vault must hold: the
// negation of the external custody account.
func (bt *BalanceTracker) CustodyRequired(asset string) *big.Int {
	return new(big.Int).Neg(bt.GetBalance(NewCustodyKey(asset)))
}

// ComputeGlobalBalance sums all balances per asset; every total must be zero
// for a zero-sum ledger.
func (bt *BalanceTracker) ComputeGlobalBalance() map[string]*big.Int {
	totals := make(map[string]*big.Int)
	for key, balance := range bt.balances {
		t, ok := totals[key.Asset]
		if !ok {
			t = new(big.Int)
			totals[key.Asset] = t
		}
		t.Add(t, balance)
	}
	return totals
}

// Snapshot returns a copy of all balances.
func (bt *BalanceTracker) Snapshot() map[AccountKey]*big.Int {
	snapshot := make(map[AccountKey]*big.Int, len(bt.balances))
	for k, v := range bt.balances {
		snapshot[k] = new(big.Int).Set(v)
	}
	return snapshot
}

// SetBalance overwrites an account balance. Snapshot restore only.
func (bt *BalanceTracker) SetBalance(key AccountKey, balance *big.Int) {
	bt.balances[key] = new(big.Int).Set(balance)
}

func (bt *BalanceTracker) add(key AccountKey, amount *big.Int) {
	b, ok := bt.balances[key]
	if !ok {
		b = new(big.Int)
		bt.balances[key] = b
	}
	b.Add(b, amount)
}

func (bt *BalanceTracker) sub(key AccountKey, amount *big.Int) {
	b, ok := bt.balances[key]
	if !ok {
		b = new(big.Int)
		bt.balances[key] = b
	}
	b.Sub(b, amount)
}
