package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

// In-memory collaborators. They back the dev-mode binary and every engine
// test; both support deterministic failure injection so stale-transfer and
// failed-mint paths are exercisable without a chain.

var (
	ErrInsufficientTokens = errors.New("token: insufficient balance")
	ErrInjectedFailure    = errors.New("token: injected failure")
)

// MemoryToken is an in-process LiabilityToken.
type MemoryToken struct {
	mu       sync.Mutex
	balances map[uuid.UUID]*big.Int

	FailMint     bool
	FailTransfer bool
	FailBurn     bool
}

func NewMemoryToken() *MemoryToken {
	return &MemoryToken{balances: make(map[uuid.UUID]*big.Int)}
}

func (t *MemoryToken) Mint(_ context.Context, to uuid.UUID, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailMint {
		return ErrInjectedFailure
	}
	t.credit(to, amount)
	return nil
}

func (t *MemoryToken) Transfer(_ context.Context, from, to uuid.UUID, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailTransfer {
		return ErrInjectedFailure
	}
	if err := t.debit(from, amount); err != nil {
		return err
	}
	t.credit(to, amount)
	return nil
}

func (t *MemoryToken) Burn(_ context.Context, holder uuid.UUID, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailBurn {
		return ErrInjectedFailure
	}
	return t.debit(holder, amount)
}

func (t *MemoryToken) BalanceOf(_ context.Context, holder uuid.UUID) (*big.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance(holder), nil
}

func (t *MemoryToken) balance(holder uuid.UUID) *big.Int {
	if b, ok := t.balances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *MemoryToken) credit(holder uuid.UUID, amount *big.Int) {
	b, ok := t.balances[holder]
	if !ok {
		b = new(big.Int)
		t.balances[holder] = b
	}
	b.Add(b, amount)
}

func (t *MemoryToken) debit(holder uuid.UUID, amount *big.Int) error {
	b, ok := t.balances[holder]
	if !ok || b.Cmp(amount) < 0 {
		return fmt.Errorf("%w: holder %s", ErrInsufficientTokens, holder)
	}
	b.Sub(b, amount)
	return nil
}

// MemoryVault is an in-process CollateralVault. It tracks per-user wallet
// balances outside custody plus the total custodied per asset, so tests can
// assert ledger custody == vault custody after any operation sequence.
type MemoryVault struct {
	mu       sync.Mutex
	wallets  map[uuid.UUID]map[string]*big.Int
	custody  map[string]*big.Int
	FailPull bool
	FailPush bool
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		wallets: make(map[uuid.UUID]map[string]*big.Int),
		custody: make(map[string]*big.Int),
	}
}

// Fund seeds a user wallet. Test/dev setup only.
func (v *MemoryVault) Fund(user uuid.UUID, asset string, amount *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.wallet(user, asset).Add(v.wallet(user, asset), amount)
}

func (v *MemoryVault) Pull(_ context.Context, from uuid.UUID, asset string, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.FailPull {
		return ErrInjectedFailure
	}
	w := v.wallet(from, asset)
	if w.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s wallet %s", ErrInsufficientTokens, asset, from)
	}
	w.Sub(w, amount)
	v.custodied(asset).Add(v.custodied(asset), amount)
	return nil
}

func (v *MemoryVault) Push(_ context.Context, to uuid.UUID, asset string, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.FailPush {
		return ErrInjectedFailure
	}
	c := v.custodied(asset)
	if c.Cmp(amount) < 0 {
		return fmt.Errorf("%w: custody of %s", ErrInsufficientTokens, asset)
	}
	c.Sub(c, amount)
	v.wallet(to, asset).Add(v.wallet(to, asset), amount)
	return nil
}

func (v *MemoryVault) CustodiedBalance(_ context.Context, asset string) (*big.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(big.Int).Set(v.custodied(asset)), nil
}

// WalletBalance returns a user's out-of-custody balance. Test helper.
func (v *MemoryVault) WalletBalance(user uuid.UUID, asset string) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(big.Int).Set(v.wallet(user, asset))
}

func (v *MemoryVault) wallet(user uuid.UUID, asset string) *big.Int {
	w, ok := v.wallets[user]
	if !ok {
		w = make(map[string]*big.Int)
		v.wallets[user] = w
	}
	b, ok := w[asset]
	if !ok {
		b = new(big.Int)
		w[asset] = b
	}
	return b
}

func (v *MemoryVault) custodied(asset string) *big.Int {
	b, ok := v.custody[asset]
	if !ok {
		b = new(big.Int)
		v.custody[asset] = b
	}
	return b
}
