package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quietmaple/microfolio/internal/money"
)

// Contribution is a cash flow between a contributor and the fund. Amount
// is always positive; Withdrawal flips its direction.
type Contribution struct {
	ID          string          `json:"id" gorm:"primaryKey;column:id;type:varchar(255)"`
	FundID      string          `json:"fund_id" gorm:"column:fund_id;type:varchar(255);not null;index"`
	Contributor string          `json:"contributor" gorm:"column:contributor;type:varchar(255);not null;index"`
	Amount      decimal.Decimal `json:"amount" gorm:"column:amount;type:decimal(30,18);not null"`
	Withdrawal  bool            `json:"withdrawal" gorm:"column:withdrawal;type:boolean;not null;default:false"`
	Timestamp   time.Time       `json:"timestamp" gorm:"column:timestamp;not null;index"`
}

func (Contribution) TableName() string {
	return "contributions"
}

func (c *Contribution) Validate() error {
	if c.Contributor == "" {
		return errors.New("contributor is required")
	}
	if c.Amount.IsZero() || c.Amount.IsNegative() {
		return errors.New("amount must be positive")
	}
	if err := money.CheckScale("amount", c.Amount, money.MoneyScale); err != nil {
		return err
	}
	if c.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	return nil
}

// Signed returns the amount with withdrawal direction applied: positive
// for money into the fund, negative for money out.
func (c *Contribution) Signed() decimal.Decimal {
	if c.Withdrawal {
		return c.Amount.Neg()
	}
	return c.Amount
}

// NetContributions folds a contribution history into net invested amount
// per contributor. Contributors whose withdrawals meet or exceed their
// contributions net to zero or below and are still present in the map so
// callers can decide how to treat them.
func NetContributions(history []Contribution) map[string]decimal.Decimal {
	net := make(map[string]decimal.Decimal)
	for i := range history {
		c := &history[i]
		net[c.Contributor] = net[c.Contributor].Add(c.Signed())
	}
	return net
}
