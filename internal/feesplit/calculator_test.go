package feesplit

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
)

func pct(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func standardConfig() models.FeeConfig {
	return models.FeeConfig{
		Scope:       models.DefaultFeeScope,
		ValidPct:    pct("70"),
		VendorPct:   pct("15"),
		PoolPct:     pct("10"),
		PromoterPct: pct("5"),
	}
}

func TestComputeExactDivision(t *testing.T) {
	split, err := Compute(1000, standardConfig())
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	want := Split{ValidCents: 700, VendorCents: 150, PoolCents: 100, PromoterCents: 50}
	if split != want {
		t.Fatalf("unexpected split %+v", split)
	}
	if split.Total() != 1000 {
		t.Fatalf("shares do not sum to amount: %d", split.Total())
	}
}

func TestComputeRemainderGoesToLargestShare(t *testing.T) {
	split, err := Compute(1001, standardConfig())
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	want := Split{ValidCents: 701, VendorCents: 150, PoolCents: 100, PromoterCents: 50}
	if split != want {
		t.Fatalf("unexpected split %+v", split)
	}
	if split.Total() != 1001 {
		t.Fatalf("shares do not sum to amount: %d", split.Total())
	}
}

func TestComputeTieBreakPrefersValidShare(t *testing.T) {
	cfg := models.FeeConfig{
		ValidPct:    pct("25"),
		VendorPct:   pct("25"),
		PoolPct:     pct("25"),
		PromoterPct: pct("25"),
	}
	split, err := Compute(1003, cfg)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if split.ValidCents != 253 {
		t.Fatalf("remainder should land on valid share: %+v", split)
	}
	if split.VendorCents != 250 || split.PoolCents != 250 || split.PromoterCents != 250 {
		t.Fatalf("unexpected split %+v", split)
	}
}

func TestComputeFractionalPercentagesWithinTolerance(t *testing.T) {
	cfg := models.FeeConfig{
		ValidPct:    pct("33.33"),
		VendorPct:   pct("33.33"),
		PoolPct:     pct("33.33"),
		PromoterPct: pct("0.01"),
	}
	split, err := Compute(999, cfg)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if split.Total() != 999 {
		t.Fatalf("shares do not sum to amount: %d", split.Total())
	}
}

func TestComputeZeroAmount(t *testing.T) {
	split, err := Compute(0, standardConfig())
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if split.Total() != 0 {
		t.Fatalf("expected all-zero split, got %+v", split)
	}
}

func TestComputeRejectsNegativeAmount(t *testing.T) {
	if _, err := Compute(-1, standardConfig()); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestComputeRejectsInvalidPercentages(t *testing.T) {
	cases := []struct {
		name string
		cfg  models.FeeConfig
	}{
		{
			"sum below tolerance",
			models.FeeConfig{ValidPct: pct("70"), VendorPct: pct("15"), PoolPct: pct("10"), PromoterPct: pct("4.9")},
		},
		{
			"sum above tolerance",
			models.FeeConfig{ValidPct: pct("70"), VendorPct: pct("15"), PoolPct: pct("10"), PromoterPct: pct("5.02")},
		},
		{
			"negative percentage",
			models.FeeConfig{ValidPct: pct("105"), VendorPct: pct("-5"), PoolPct: pct("0"), PromoterPct: pct("0")},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(1000, tc.cfg)
			if !errors.Is(err, ErrInvalidPercentages) {
				t.Fatalf("expected ErrInvalidPercentages, got %v", err)
			}
		})
	}
}

func TestComputeSumToleranceBoundary(t *testing.T) {
	cfg := models.FeeConfig{
		ValidPct:    pct("70"),
		VendorPct:   pct("15"),
		PoolPct:     pct("10"),
		PromoterPct: pct("5.01"),
	}
	if _, err := Compute(1000, cfg); err != nil {
		t.Fatalf("sum within tolerance should be accepted: %v", err)
	}
}

func TestComputeDeterministic(t *testing.T) {
	cfg := standardConfig()
	first, err := Compute(987654321, cfg)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Compute(987654321, cfg)
		if err != nil {
			t.Fatalf("Compute error: %v", err)
		}
		if again != first {
			t.Fatalf("split not deterministic: %+v vs %+v", first, again)
		}
	}
}
