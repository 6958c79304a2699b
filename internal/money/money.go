// Package money implements the exact-decimal arithmetic core.
//
// Every monetary amount in the engine is a shopspring decimal; binary
// floats never carry money. Amounts are quantized to two decimal places,
// share quantities to four, and ratios to four, all with half-up rounding
// (ties round away from zero), so 10.995 becomes 11.00 and -10.995
// becomes -11.00.
//
// All functions are stateless and safe for concurrent use.
package money

import (
	"github.com/shopspring/decimal"

	"github.com/quietmaple/microfolio/internal/errors"
)

const (
	// MoneyScale is the number of decimal places for monetary amounts.
	MoneyScale int32 = 2
	// ShareScale is the number of decimal places for share quantities.
	ShareScale int32 = 4
	// RatioScale is the number of decimal places for ratios and weights.
	RatioScale int32 = 4
)

// OneCent is the materiality threshold for daily P&L reconciliation.
var OneCent = decimal.New(1, -2)

// Quantize returns d in canonical money form: two decimal places,
// half-up rounding. Quantizing an already-quantized value is a no-op.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// QuantizeShares returns d in canonical share-quantity form: four decimal
// places, half-up rounding.
func QuantizeShares(d decimal.Decimal) decimal.Decimal {
	return d.Round(ShareScale)
}

// QuantizeRatio returns d rounded to the canonical ratio scale.
func QuantizeRatio(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatioScale)
}

// CheckScale rejects values carrying more fractional digits than places.
// It guards call sites that require exact canonical-scale input, typically
// values parsed from external records.
func CheckScale(field string, d decimal.Decimal, places int32) error {
	if !d.Round(places).Equal(d) {
		return errors.NewValidation(field, "more than "+decimal.NewFromInt32(places).String()+" decimal places")
	}
	return nil
}

// CostBasis computes price times shares with each input quantized to its
// canonical scale first, then the product quantized to money scale.
func CostBasis(price, shares decimal.Decimal) decimal.Decimal {
	return Quantize(Quantize(price).Mul(QuantizeShares(shares)))
}

// PositionValue computes the market value of a holding. Same quantization
// law as CostBasis.
func PositionValue(price, shares decimal.Decimal) decimal.Decimal {
	return CostBasis(price, shares)
}

// PnL computes (current - avg) * shares at money scale. The result is
// positive when current exceeds avg, negative when below, and exactly
// zero when equal or when shares is zero.
func PnL(current, avg, shares decimal.Decimal) decimal.Decimal {
	diff := Quantize(current).Sub(Quantize(avg))
	return Quantize(diff.Mul(QuantizeShares(shares)))
}

// PercentageChange returns (new - old) / old as a ratio at ratio scale.
// A zero old value returns exactly zero rather than an error, so callers
// never divide by zero on flat or newly opened positions.
func PercentageChange(oldValue, newValue decimal.Decimal) decimal.Decimal {
	if oldValue.IsZero() {
		return decimal.Zero
	}
	return QuantizeRatio(newValue.Sub(oldValue).Div(oldValue))
}

// WeightedAveragePrice computes sum(price_i * qty_i) / sum(qty_i) at money
// scale. Mismatched slice lengths and a zero total quantity are errors.
func WeightedAveragePrice(prices, quantities []decimal.Decimal) (decimal.Decimal, error) {
	if len(prices) != len(quantities) {
		return decimal.Zero, errors.NewValidation("quantities", "length does not match prices")
	}

	total := decimal.Zero
	weighted := decimal.Zero
	for i := range prices {
		q := QuantizeShares(quantities[i])
		weighted = weighted.Add(Quantize(prices[i]).Mul(q))
		total = total.Add(q)
	}
	if total.IsZero() {
		return decimal.Zero, errors.NewValidation("quantities", "total quantity is zero")
	}
	return Quantize(weighted.Div(total)), nil
}
