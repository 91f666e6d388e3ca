// internal/planner/planner.go
package planner

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/HosicoLabs/Litterbox/internal/domain"
)

// ErrFeeOverflow marks a fee amount too large for a token transfer.
var ErrFeeOverflow = errors.New("fee amount exceeds token transfer range")

// Params are the fixed constants the preview depends on.
type Params struct {
	RentPerAccount float64 // native units reclaimed per closed account
	FeeFraction    float64
}

// Preview is the derived conversion summary for the current selection.
type Preview struct {
	SelectedCount   int
	AggregateUSD    decimal.Decimal
	ReclaimedNative decimal.Decimal
	ReclaimedUSD    decimal.Decimal
	TotalUSD        decimal.Decimal
	GrossTarget     decimal.Decimal
	FeeTarget       decimal.Decimal
	NetTarget       decimal.Decimal
}

// Empty reports whether nothing is selected.
func (p Preview) Empty() bool {
	return p.SelectedCount == 0
}

// Compute builds the preview. It is a pure function of its inputs; a zero
// target price yields a zero target amount.
func Compute(records []domain.TokenAccountRecord, sel domain.SelectionSet, nativePrice, targetPrice float64, params Params) Preview {
	selected := sel.Select(records)

	aggregate := decimal.Zero
	for _, r := range selected {
		aggregate = aggregate.Add(decimal.NewFromFloat(r.UIAmount).Mul(decimal.NewFromFloat(r.PriceUSD)))
	}

	reclaimed := ReclaimedNative(len(selected), params.RentPerAccount)
	reclaimedUSD := reclaimed.Mul(decimal.NewFromFloat(nativePrice))
	total := aggregate.Add(reclaimedUSD)

	gross := decimal.Zero
	if targetPrice > 0 {
		gross = total.Div(decimal.NewFromFloat(targetPrice))
	}
	fee := gross.Mul(decimal.NewFromFloat(params.FeeFraction))

	return Preview{
		SelectedCount:   len(selected),
		AggregateUSD:    aggregate,
		ReclaimedNative: reclaimed,
		ReclaimedUSD:    reclaimedUSD,
		TotalUSD:        total,
		GrossTarget:     gross,
		FeeTarget:       fee,
		NetTarget:       gross.Sub(fee),
	}
}

// ReclaimedNative is count × rent, in native units.
func ReclaimedNative(count int, rentPerAccount float64) decimal.Decimal {
	return decimal.NewFromInt(int64(count)).Mul(decimal.NewFromFloat(rentPerAccount))
}

// FeeBaseUnits returns the fee transfer amount in target base units: the gross
// amount rounded to whole units, times the fee fraction, scaled by decimals.
// An amount that does not fit a token transfer yields ErrFeeOverflow.
func FeeBaseUnits(gross decimal.Decimal, feeFraction float64, decimals uint8) (uint64, error) {
	fee := gross.Round(0).Mul(decimal.NewFromFloat(feeFraction)).Shift(int32(decimals)).Floor()
	if fee.IsNegative() {
		return 0, nil
	}
	n := fee.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s base units", ErrFeeOverflow, fee.String())
	}
	return n.Uint64(), nil
}
