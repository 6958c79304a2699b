package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quietmaple/microfolio/internal/money"
)

// Position represents a single holding inside a portfolio snapshot.
// CurrentPrice and StopLoss are pointers because market data may be
// absent; nil means "no data", which is distinct from a zero price.
type Position struct {
	ID         string `json:"id" gorm:"primaryKey;column:id;type:varchar(255)"`
	SnapshotID string `json:"snapshot_id" gorm:"column:snapshot_id;type:varchar(255);not null;index"`
	Ticker     string `json:"ticker" gorm:"column:ticker;type:varchar(50);not null;index"`

	// Name is the company's display name; optional, the ticker stands in
	// when it is empty.
	Name string `json:"name,omitempty" gorm:"column:name;type:varchar(255)"`

	Shares    decimal.Decimal `json:"shares" gorm:"column:shares;type:decimal(30,18);not null"`
	AvgPrice  decimal.Decimal `json:"avg_price" gorm:"column:avg_price;type:decimal(30,18);not null"`
	CostBasis decimal.Decimal `json:"cost_basis" gorm:"column:cost_basis;type:decimal(30,18);not null"`

	// Currency is the explicit trading currency. Empty means "classify
	// from the ticker suffix".
	Currency string `json:"currency" gorm:"column:currency;type:varchar(10)"`

	CurrentPrice *decimal.Decimal `json:"current_price" gorm:"column:current_price;type:decimal(30,18)"`
	StopLoss     *decimal.Decimal `json:"stop_loss" gorm:"column:stop_loss;type:decimal(30,18)"`
}

func (Position) TableName() string {
	return "positions"
}

// Validate checks the position's input contract.
func (p *Position) Validate() error {
	if p.Ticker == "" {
		return errors.New("ticker is required")
	}
	if p.Shares.IsNegative() {
		return errors.New("shares must be non-negative")
	}
	if err := money.CheckScale("shares", p.Shares, money.ShareScale); err != nil {
		return err
	}
	if p.AvgPrice.IsNegative() {
		return errors.New("avg_price must be non-negative")
	}
	if err := money.CheckScale("avg_price", p.AvgPrice, money.MoneyScale); err != nil {
		return err
	}
	if p.Currency != "" && !IsSupportedCurrency(p.Currency) {
		return errors.New("currency must be USD or CAD")
	}
	if p.CurrentPrice != nil && p.CurrentPrice.IsNegative() {
		return errors.New("current_price must be non-negative")
	}
	return nil
}

// CurrencyOrClassified returns the explicit currency when present, falling
// back to ticker-suffix classification. An explicit value always wins.
func (p *Position) CurrencyOrClassified() string {
	if p.Currency != "" {
		return p.Currency
	}
	return CurrencyForTicker(p.Ticker)
}

// Market returns the market whose calendar governs this position.
func (p *Position) Market() Market {
	return MarketForTicker(p.Ticker)
}

// Valid reports whether the position can participate in portfolio
// aggregation: non-negative shares and average price, and a present,
// non-negative current price. Invalid positions are excluded from totals,
// never zero-filled.
func (p *Position) Valid() bool {
	if p.Shares.IsNegative() || p.AvgPrice.IsNegative() {
		return false
	}
	return p.CurrentPrice != nil && !p.CurrentPrice.IsNegative()
}

// CalculateCostBasis fills the derived CostBasis field from shares and
// average price.
func (p *Position) CalculateCostBasis() {
	p.CostBasis = money.CostBasis(p.AvgPrice, p.Shares)
}

// MarketValue returns the position's value at its current price, or nil
// when no price is known.
func (p *Position) MarketValue() *decimal.Decimal {
	if p.CurrentPrice == nil {
		return nil
	}
	v := money.PositionValue(*p.CurrentPrice, p.Shares)
	return &v
}

// UnrealizedPnL returns (current - avg) * shares, or nil when no current
// price is known.
func (p *Position) UnrealizedPnL() *decimal.Decimal {
	if p.CurrentPrice == nil {
		return nil
	}
	v := money.PnL(*p.CurrentPrice, p.AvgPrice, p.Shares)
	return &v
}

// PortfolioSnapshot is the portfolio state recorded for one fund on one
// day: positions plus per-currency cash.
type PortfolioSnapshot struct {
	ID     string    `json:"id" gorm:"primaryKey;column:id;type:varchar(255)"`
	FundID string    `json:"fund_id" gorm:"column:fund_id;type:varchar(255);not null;index:idx_snapshots_fund_date,unique"`
	Date   time.Time `json:"date" gorm:"column:date;not null;index:idx_snapshots_fund_date,unique"`

	Positions []Position `json:"positions" gorm:"foreignKey:SnapshotID;references:ID"`

	CashCAD decimal.Decimal `json:"cash_cad" gorm:"column:cash_cad;type:decimal(30,18);not null;default:0"`
	CashUSD decimal.Decimal `json:"cash_usd" gorm:"column:cash_usd;type:decimal(30,18);not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (PortfolioSnapshot) TableName() string {
	return "portfolio_snapshots"
}

// Validate checks the snapshot and all its positions.
func (s *PortfolioSnapshot) Validate() error {
	if s.FundID == "" {
		return errors.New("fund_id is required")
	}
	if s.Date.IsZero() {
		return errors.New("date is required")
	}
	for i := range s.Positions {
		if err := s.Positions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeDate truncates the snapshot date to UTC midnight so same-day
// snapshots compare equal regardless of recording time.
func (s *PortfolioSnapshot) NormalizeDate() {
	s.Date = DateOnly(s.Date)
}

// FindPosition returns the position for ticker, or nil when the snapshot
// does not hold it.
func (s *PortfolioSnapshot) FindPosition(ticker string) *Position {
	for i := range s.Positions {
		if s.Positions[i].Ticker == ticker {
			return &s.Positions[i]
		}
	}
	return nil
}

// DateOnly truncates t to UTC midnight.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
