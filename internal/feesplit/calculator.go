package feesplit

import (
	"github.com/shopspring/decimal"

	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
)

// ErrInvalidPercentages is returned when the four percentages do not sum to
// 100 within the 0.01 tolerance or any percentage is negative.
var ErrInvalidPercentages = pkgerrors.New(pkgerrors.CodeValidation, "fee percentages must be non-negative and sum to 100")

var (
	hundred   = decimal.NewFromInt(100)
	tolerance = decimal.RequireFromString("0.01")
)

// Split is the per-stakeholder allocation of a charged amount in minor
// currency units. The four shares always sum exactly to the input amount.
type Split struct {
	ValidCents    int64 `json:"valid_cents"`
	VendorCents   int64 `json:"vendor_cents"`
	PoolCents     int64 `json:"pool_cents"`
	PromoterCents int64 `json:"promoter_cents"`
}

// Total returns the sum of all shares.
func (s Split) Total() int64 {
	return s.ValidCents + s.VendorCents + s.PoolCents + s.PromoterCents
}

// Compute splits amountCents across the four stakeholders of the config.
// Each share is floored, then the leftover cents go to the stakeholder with
// the largest percentage; when percentages tie, the valid share wins.
func Compute(amountCents int64, cfg models.FeeConfig) (Split, error) {
	if amountCents < 0 {
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	if err := ValidatePercentages(cfg); err != nil {
		return Split{}, err
	}

	amount := decimal.NewFromInt(amountCents)
	shares := [4]int64{
		floorShare(amount, cfg.ValidPct),
		floorShare(amount, cfg.VendorPct),
		floorShare(amount, cfg.PoolPct),
		floorShare(amount, cfg.PromoterPct),
	}

	remainder := amountCents - (shares[0] + shares[1] + shares[2] + shares[3])
	if remainder > 0 {
		shares[largestShareIndex(cfg)] += remainder
	}

	return Split{
		ValidCents:    shares[0],
		VendorCents:   shares[1],
		PoolCents:     shares[2],
		PromoterCents: shares[3],
	}, nil
}

// ValidatePercentages checks the non-negativity and sum-to-100 invariants.
func ValidatePercentages(cfg models.FeeConfig) error {
	for _, pct := range []decimal.Decimal{cfg.ValidPct, cfg.VendorPct, cfg.PoolPct, cfg.PromoterPct} {
		if pct.IsNegative() {
			return ErrInvalidPercentages
		}
	}
	sum := cfg.ValidPct.Add(cfg.VendorPct).Add(cfg.PoolPct).Add(cfg.PromoterPct)
	if sum.Sub(hundred).Abs().GreaterThan(tolerance) {
		return ErrInvalidPercentages
	}
	return nil
}

func floorShare(amount, pct decimal.Decimal) int64 {
	return amount.Mul(pct).Div(hundred).Floor().IntPart()
}

// largestShareIndex picks the stakeholder receiving the rounding remainder.
// Iteration order matters: on a tie the earliest index wins, and valid is
// first.
func largestShareIndex(cfg models.FeeConfig) int {
	pcts := [4]decimal.Decimal{cfg.ValidPct, cfg.VendorPct, cfg.PoolPct, cfg.PromoterPct}
	largest := 0
	for i := 1; i < len(pcts); i++ {
		if pcts[i].GreaterThan(pcts[largest]) {
			largest = i
		}
	}
	return largest
}
