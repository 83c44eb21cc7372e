package fixedpoint

import (
	"fmt"
	"math/big"
	"sync"
)

// WadDecimals is the precision every monetary quantity is carried at:
// token amounts, USD values, prices, and health factors.
const WadDecimals = 18

var (
	// Wad is 10^18, the fixed-point unit.
	Wad = new(big.Int).Exp(big.NewInt(10), big.NewInt(WadDecimals), nil)

	// Infinity is the health factor of an account with zero liability.
	// Chosen above any reachable ratio so comparisons stay ordinary Cmp calls.
	Infinity = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	zero = big.NewInt(0)
)

// Pooled big.Int for intermediate products so hot-path conversions do not
// allocate a fresh word slice per call.
var intPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(v *big.Int) {
	v.SetInt64(0)
	intPool.Put(v)
}

// MulDiv computes floor(a * b / den). The multiply happens before the divide;
// reordering changes rounding and therefore solvency decisions, so callers
// must not "simplify" formulas built on this.
func MulDiv(a, b, den *big.Int) *big.Int {
	if den.Sign() == 0 {
		panic("fixedpoint: division by zero")
	}
	tmp := getInt()
	tmp.Mul(a, b)
	result := new(big.Int).Quo(tmp, den)
	putInt(tmp)
	return result
}

// MulWad computes a * b / 1e18.
func MulWad(a, b *big.Int) *big.Int {
	return MulDiv(a, b, Wad)
}

// DivWad computes a * 1e18 / b.
func DivWad(a, b *big.Int) *big.Int {
	return MulDiv(a, Wad, b)
}

// ScaleToWad normalizes a raw integer quantity carried at the given decimal
// precision up to 18 decimals. Feeds report at 8 decimals, most ERC-20 style
// assets at 18; normalizing before any multiply avoids the truncation bias a
// low-decimal operand would otherwise introduce.
func ScaleToWad(raw *big.Int, decimals uint8) (*big.Int, error) {
	if decimals > WadDecimals {
		return nil, fmt.Errorf("fixedpoint: %d decimals exceeds wad precision", decimals)
	}
	if decimals == WadDecimals {
		return new(big.Int).Set(raw), nil
	}
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(WadDecimals-decimals)), nil)
	return new(big.Int).Mul(raw, factor), nil
}

// IsPositive reports whether v is strictly greater than zero.
func IsPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

// Clone returns an owned copy of v (nil-safe, nil maps to zero).
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// FromUnits returns units * 1e18, for whole-token literals in wiring and tests.
func FromUnits(units int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), Wad)
}

// String renders v as a decimal with the wad point inserted, for logs.
func String(v *big.Int) string {
	if v == nil {
		return "0"
	}
	quo := new(big.Int)
	rem := new(big.Int)
	quo.QuoRem(v, Wad, rem)
	if rem.Sign() == 0 {
		return quo.String()
	}
	if rem.Sign() < 0 {
		rem.Neg(rem)
	}
	return fmt.Sprintf("%s.%018s", quo.String(), rem.String())
}

// Cmp is a nil-safe comparison treating nil as zero.
func Cmp(a, b *big.Int) int {
	if a == nil {
		a = zero
	}
	if b == nil {
		b = zero
	}
	return a.Cmp(b)
}
