package money

import (
	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount in the given ISO currency code using the
// currency's own grapheme and separators, e.g. "$1,234.56".
func FormatMoney(amount decimal.Decimal, code string) string {
	cur := *gomoney.New(0, code).Currency()
	minor := Quantize(amount).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.IntPart())
}

// FormatPnL renders a P&L amount with an explicit sign, "+$500.00" or
// "-$150.00". Zero renders as "+$0.00". Both fund currencies share the
// dollar grapheme, so the code only affects separators.
func FormatPnL(amount decimal.Decimal) string {
	s := FormatMoney(amount, gomoney.USD)
	if amount.IsNegative() {
		return s
	}
	return "+" + s
}

// FormatPercent renders a ratio as a signed percentage with one decimal,
// "+15.0%" or "-8.0%". Zero renders as "+0.0%".
func FormatPercent(ratio decimal.Decimal) string {
	pct := ratio.Mul(decimal.NewFromInt(100)).Round(1)
	if pct.IsNegative() {
		return pct.StringFixed(1) + "%"
	}
	return "+" + pct.StringFixed(1) + "%"
}
