package fixedpoint_test

import (
	"math/big"
	"testing"

	"SynthLedger/internal/fixedpoint"
)

func wad(units int64) *big.Int {
	return fixedpoint.FromUnits(units)
}

// ============================================================================
// Test: MulDiv
// ============================================================================

func TestMulDiv_MultiplyBeforeDivide(t *testing.T) {
	// 5 * 3 / 2 floors to 7; dividing first would floor 5/2 to 2 and give 6.
	got := fixedpoint.MulDiv(big.NewInt(5), big.NewInt(3), big.NewInt(2))
	if got.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("MulDiv(5,3,2) = %s, want 7", got)
	}
}

func TestMulDiv_FloorsTowardZero(t *testing.T) {
	got := fixedpoint.MulDiv(big.NewInt(7), big.NewInt(1), big.NewInt(2))
	if got.Cmp(big.NewInt(3)) != 0 {
		t.Errorf("MulDiv(7,1,2) = %s, want 3", got)
	}
}

func TestMulDiv_ZeroDenominatorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on zero denominator")
		}
	}()
	fixedpoint.MulDiv(big.NewInt(1), big.NewInt(1), big.NewInt(0))
}

func TestMulDiv_NoIntermediateOverflow(t *testing.T) {
	// Both operands near 2^200; product exceeds any fixed-width integer.
	a := new(big.Int).Lsh(big.NewInt(1), 200)
	got := fixedpoint.MulDiv(a, a, a)
	if got.Cmp(a) != 0 {
		t.Errorf("MulDiv(2^200, 2^200, 2^200) = %s, want 2^200", got)
	}
}

func TestMulWad_DivWad_Inverse(t *testing.T) {
	price := wad(2000)
	amount := wad(3)

	value := fixedpoint.MulWad(price, amount)
	if value.Cmp(wad(6000)) != 0 {
		t.Fatalf("MulWad = %s, want 6000e18", value)
	}

	back := fixedpoint.DivWad(value, price)
	if back.Cmp(amount) != 0 {
		t.Errorf("DivWad round trip = %s, want %s", back, amount)
	}
}

// ============================================================================
// Test: ScaleToWad
// ============================================================================

func TestScaleToWad_EightDecimals(t *testing.T) {
	// 2000.00000000 at 8 decimals.
	raw := big.NewInt(200000000000)
	got, err := fixedpoint.ScaleToWad(raw, 8)
	if err != nil {
		t.Fatalf("ScaleToWad: %v", err)
	}
	if got.Cmp(wad(2000)) != 0 {
		t.Errorf("got %s, want 2000e18", got)
	}
}

func TestScaleToWad_EighteenDecimalsIsIdentity(t *testing.T) {
	raw := wad(42)
	got, err := fixedpoint.ScaleToWad(raw, 18)
	if err != nil {
		t.Fatalf("ScaleToWad: %v", err)
	}
	if got.Cmp(raw) != 0 {
		t.Errorf("got %s, want %s", got, raw)
	}
	if got == raw {
		t.Error("ScaleToWad must return a copy, not the input")
	}
}

func TestScaleToWad_TooManyDecimals(t *testing.T) {
	if _, err := fixedpoint.ScaleToWad(big.NewInt(1), 19); err == nil {
		t.Error("expected error for 19 decimals")
	}
}

// ============================================================================
// Test: HealthFactor
// ============================================================================

func TestHealthFactor_ZeroDebtIsInfinity(t *testing.T) {
	got := fixedpoint.HealthFactor(big.NewInt(0), wad(1000))
	if got.Cmp(fixedpoint.Infinity) != 0 {
		t.Errorf("got %s, want Infinity", got)
	}
}

func TestHealthFactor_NilDebtIsInfinity(t *testing.T) {
	got := fixedpoint.HealthFactor(nil, wad(1000))
	if got.Cmp(fixedpoint.Infinity) != 0 {
		t.Errorf("got %s, want Infinity", got)
	}
}

func TestHealthFactor_ExactlyTwiceCollateralized(t *testing.T) {
	// $2000 of collateral against 500 synthetic: adjusted = 1000, 1000/500 = 2.0.
	got := fixedpoint.HealthFactor(wad(500), wad(2000))
	if got.Cmp(wad(2)) != 0 {
		t.Errorf("got %s, want 2e18", got)
	}
}

func TestHealthFactor_AtMinimum(t *testing.T) {
	// $1000 of collateral against 500 synthetic: adjusted = 500, factor = 1.0.
	got := fixedpoint.HealthFactor(wad(500), wad(1000))
	if got.Cmp(fixedpoint.MinHealthFactor) != 0 {
		t.Errorf("got %s, want exactly MinHealthFactor", got)
	}
}

func TestHealthFactor_BelowMinimum(t *testing.T) {
	got := fixedpoint.HealthFactor(wad(500), wad(999))
	if got.Cmp(fixedpoint.MinHealthFactor) >= 0 {
		t.Errorf("got %s, want below MinHealthFactor", got)
	}
}

func TestHealthFactor_ThresholdBeforeDivision(t *testing.T) {
	// With 3 wei of collateral value and 1 wei of debt, the threshold
	// multiply floors first: 3*50/100 = 1, then 1*1e18/1 = 1e18.
	got := fixedpoint.HealthFactor(big.NewInt(1), big.NewInt(3))
	if got.Cmp(fixedpoint.Wad) != 0 {
		t.Errorf("got %s, want 1e18", got)
	}
}

// ============================================================================
// Test: BonusCollateral
// ============================================================================

func TestBonusCollateral_TenPercent(t *testing.T) {
	got := fixedpoint.BonusCollateral(wad(10))
	if got.Cmp(wad(1)) != 0 {
		t.Errorf("got %s, want 1e18", got)
	}
}

func TestBonusCollateral_FloorsSmallAmounts(t *testing.T) {
	got := fixedpoint.BonusCollateral(big.NewInt(9))
	if got.Cmp(big.NewInt(0)) != 0 {
		t.Errorf("got %s, want 0", got)
	}
}

// ============================================================================
// Test: helpers
// ============================================================================

func TestString_WholeAndFractional(t *testing.T) {
	if s := fixedpoint.String(wad(5)); s != "5" {
		t.Errorf("String(5e18) = %q, want \"5\"", s)
	}
	half := new(big.Int).Quo(fixedpoint.Wad, big.NewInt(2))
	if s := fixedpoint.String(half); s != "0.500000000000000000" {
		t.Errorf("String(0.5e18) = %q", s)
	}
	if s := fixedpoint.String(nil); s != "0" {
		t.Errorf("String(nil) = %q, want \"0\"", s)
	}
}

func TestIsPositive(t *testing.T) {
	if fixedpoint.IsPositive(nil) {
		t.Error("nil should not be positive")
	}
	if fixedpoint.IsPositive(big.NewInt(0)) {
		t.Error("zero should not be positive")
	}
	if fixedpoint.IsPositive(big.NewInt(-1)) {
		t.Error("negative should not be positive")
	}
	if !fixedpoint.IsPositive(big.NewInt(1)) {
		t.Error("one should be positive")
	}
}

func TestCmp_NilSafe(t *testing.T) {
	if fixedpoint.Cmp(nil, nil) != 0 {
		t.Error("Cmp(nil, nil) should be 0")
	}
	if fixedpoint.Cmp(big.NewInt(1), nil) != 1 {
		t.Error("Cmp(1, nil) should be 1")
	}
	if fixedpoint.Cmp(nil, big.NewInt(1)) != -1 {
		t.Error("Cmp(nil, 1) should be -1")
	}
}
