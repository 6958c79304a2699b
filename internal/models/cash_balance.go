package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quietmaple/microfolio/internal/money"
)

// CashBalances tracks a fund's uninvested cash per currency. Balances are
// kept at money scale and never go negative: an overdraw clamps the bucket
// to zero.
//
// Not safe for concurrent use. Each caller works on its own instance and
// persists through a repository.
type CashBalances struct {
	FundID string `json:"fund_id" gorm:"primaryKey;column:fund_id;type:varchar(255)"`

	CAD decimal.Decimal `json:"cad" gorm:"column:cad;type:decimal(30,18);not null;default:0"`
	USD decimal.Decimal `json:"usd" gorm:"column:usd;type:decimal(30,18);not null;default:0"`

	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (CashBalances) TableName() string {
	return "cash_balances"
}

// NewCashBalances returns zeroed balances for a fund.
func NewCashBalances(fundID string) *CashBalances {
	return &CashBalances{FundID: fundID, CAD: decimal.Zero, USD: decimal.Zero}
}

// Balance returns the balance held in the given currency.
func (c *CashBalances) Balance(currency string) decimal.Decimal {
	switch currency {
	case CurrencyCAD:
		return c.CAD
	case CurrencyUSD:
		return c.USD
	}
	return decimal.Zero
}

func (c *CashBalances) set(currency string, amount decimal.Decimal) {
	switch currency {
	case CurrencyCAD:
		c.CAD = amount
	case CurrencyUSD:
		c.USD = amount
	}
}

// Add deposits amount into the currency bucket. Amounts are quantized to
// money scale on the way in.
func (c *CashBalances) Add(currency string, amount decimal.Decimal) error {
	if !IsSupportedCurrency(currency) {
		return errors.New("currency must be USD or CAD")
	}
	if amount.IsNegative() {
		return errors.New("amount must be non-negative")
	}
	c.set(currency, money.Quantize(c.Balance(currency).Add(amount)))
	return nil
}

// Spend withdraws amount from the currency bucket. When the balance
// covers the amount it is reduced and Spend reports true. When it does
// not, the bucket is clamped to zero and Spend reports false so the
// caller can react to the shortfall.
func (c *CashBalances) Spend(currency string, amount decimal.Decimal) bool {
	amt := money.Quantize(amount)
	bal := c.Balance(currency)
	if bal.GreaterThanOrEqual(amt) {
		c.set(currency, money.Quantize(bal.Sub(amt)))
		return true
	}
	c.set(currency, decimal.Zero)
	return false
}

// SpendChecked is Spend with the input contract enforced: unsupported
// currencies and negative amounts are validation errors instead of
// silent no-ops.
func (c *CashBalances) SpendChecked(currency string, amount decimal.Decimal) (bool, error) {
	if !IsSupportedCurrency(currency) {
		return false, errors.New("currency must be USD or CAD")
	}
	if amount.IsNegative() {
		return false, errors.New("amount must be non-negative")
	}
	return c.Spend(currency, amount), nil
}

// TotalIn returns both buckets expressed in the given base currency using
// usdcadRate, the price of one USD in CAD.
func (c *CashBalances) TotalIn(base string, usdcadRate decimal.Decimal) (decimal.Decimal, error) {
	if usdcadRate.IsZero() || usdcadRate.IsNegative() {
		return decimal.Zero, errors.New("rate must be positive")
	}
	switch base {
	case CurrencyCAD:
		return money.Quantize(c.CAD.Add(c.USD.Mul(usdcadRate))), nil
	case CurrencyUSD:
		return money.Quantize(c.USD.Add(c.CAD.Div(usdcadRate))), nil
	}
	return decimal.Zero, errors.New("base must be USD or CAD")
}
