package registry_test

import (
	"errors"
	"testing"

	"SynthLedger/internal/oracle"
	"SynthLedger/internal/registry"
)

func feed() oracle.PriceFeed {
	return oracle.NewCachedFeed()
}

func TestNew_ParallelSliceMismatch(t *testing.T) {
	_, err := registry.New([]string{"WETH", "WBTC"}, []oracle.PriceFeed{feed()})
	if err == nil {
		t.Error("expected error for mismatched slice lengths")
	}
}

func TestNew_Empty(t *testing.T) {
	if _, err := registry.New(nil, nil); err == nil {
		t.Error("expected error for empty registry")
	}
}

func TestNew_EmptySymbol(t *testing.T) {
	_, err := registry.New([]string{""}, []oracle.PriceFeed{feed()})
	if err == nil {
		t.Error("expected error for empty symbol")
	}
}

func TestNew_NilFeed(t *testing.T) {
	_, err := registry.New([]string{"WETH"}, []oracle.PriceFeed{nil})
	if err == nil {
		t.Error("expected error for nil feed")
	}
}

func TestNew_DuplicateSymbol(t *testing.T) {
	_, err := registry.New([]string{"WETH", "WETH"}, []oracle.PriceFeed{feed(), feed()})
	if err == nil {
		t.Error("expected error for duplicate symbol")
	}
}

func TestIsAccepted(t *testing.T) {
	r, err := registry.New([]string{"WETH"}, []oracle.PriceFeed{feed()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !r.IsAccepted("WETH") {
		t.Error("WETH should be accepted")
	}
	if r.IsAccepted("DOGE") {
		t.Error("DOGE should not be accepted")
	}
}

func TestFeedFor_Unknown(t *testing.T) {
	r, err := registry.New([]string{"WETH"}, []oracle.PriceFeed{feed()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = r.FeedFor("DOGE")
	var unknown registry.ErrUnknownAsset
	if !errors.As(err, &unknown) {
		t.Fatalf("got %v, want ErrUnknownAsset", err)
	}
	if unknown.Asset != "DOGE" {
		t.Errorf("error names asset %q, want DOGE", unknown.Asset)
	}
}

func TestFeedFor_ReturnsBoundFeed(t *testing.T) {
	bound := oracle.NewCachedFeed()
	r, err := registry.New([]string{"WETH"}, []oracle.PriceFeed{bound})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := r.FeedFor("WETH")
	if err != nil {
		t.Fatalf("FeedFor: %v", err)
	}
	if got != oracle.PriceFeed(bound) {
		t.Error("FeedFor returned a different feed than the one bound")
	}
	// Compile-time check that the registry satisfies the lookup contract.
	var _ oracle.FeedLookup = r
}

func TestAssets_InsertionOrderAndCopy(t *testing.T) {
	r, err := registry.New(
		[]string{"WETH", "WBTC", "LINK"},
		[]oracle.PriceFeed{feed(), feed(), feed()},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	assets := r.Assets()
	want := []string{"WETH", "WBTC", "LINK"}
	for i, a := range want {
		if assets[i] != a {
			t.Fatalf("Assets()[%d] = %q, want %q", i, assets[i], a)
		}
	}

	assets[0] = "mutated"
	if r.Assets()[0] != "WETH" {
		t.Error("Assets must return a copy")
	}
}
