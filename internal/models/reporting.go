package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period represents a time period for reporting
type Period struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// PnLBreakdown is the result of a single P&L computation: the absolute
// amount at money scale, the percentage as a ratio (0.15 for a fifteen
// percent gain), and the basis and value the move was measured between.
// Label names the lookback window for period computations ("1W", "1M")
// and stays empty otherwise.
type PnLBreakdown struct {
	Absolute     decimal.Decimal `json:"absolute"`
	Percent      decimal.Decimal `json:"percent"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	CurrentValue decimal.Decimal `json:"current_value"`
	Label        string          `json:"label,omitempty"`
}

// DailyPnLResult is the outcome of reconciling one ticker's daily P&L
// from snapshot history. Computed reports whether a value could be
// established; when it is false Amount is zero and Reason says why.
// Consumers must check Computed instead of treating zero as "flat".
type DailyPnLResult struct {
	Ticker   string          `json:"ticker"`
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Computed bool            `json:"computed"`
	Reason   string          `json:"reason,omitempty"`
}

// Reasons for an uncomputed daily P&L.
const (
	ReasonNoPriorData  = "no prior trading data"
	ReasonNoCurrentday = "no data for requested date"
	ReasonBadSnapshot  = "snapshot data invalid"
)

// PortfolioPnLSummary aggregates unrealized P&L across the valid
// positions of a portfolio.
type PortfolioPnLSummary struct {
	TotalCostBasis decimal.Decimal `json:"total_cost_basis"`
	TotalValue     decimal.Decimal `json:"total_value"`
	TotalPnL       decimal.Decimal `json:"total_pnl"`
	PnLPercent     decimal.Decimal `json:"pnl_percent"`
	Positions      int             `json:"positions"`
	Skipped        int             `json:"skipped"`
}

// PerformanceMetrics composes portfolio P&L with cash and contribution
// data into the fund-level view.
type PerformanceMetrics struct {
	TotalMarketValue    decimal.Decimal `json:"total_market_value"`
	TotalCash           decimal.Decimal `json:"total_cash"`
	TotalPortfolioValue decimal.Decimal `json:"total_portfolio_value"`
	TotalCostBasis      decimal.Decimal `json:"total_cost_basis"`
	TotalPnL            decimal.Decimal `json:"total_pnl"`
	ReturnPercent       decimal.Decimal `json:"return_percent"`
	NetContributions    decimal.Decimal `json:"net_contributions"`
	WinningPositions    int             `json:"winning_positions"`
	LosingPositions     int             `json:"losing_positions"`
	PositionsWithPnL    int             `json:"positions_with_pnl"`
	WinRate             decimal.Decimal `json:"win_rate"`
}

// PositionMetrics is the per-position slice of a portfolio report.
// Market-dependent fields, the stop-loss readouts included, are nil when
// no price is known; cost basis is always present.
type PositionMetrics struct {
	Ticker       string           `json:"ticker"`
	Name         string           `json:"name,omitempty"`
	Currency     string           `json:"currency"`
	Shares       decimal.Decimal  `json:"shares"`
	AvgPrice     decimal.Decimal  `json:"avg_price"`
	CostBasis    decimal.Decimal  `json:"cost_basis"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
	MarketValue  *decimal.Decimal `json:"market_value,omitempty"`
	PnL          *decimal.Decimal `json:"pnl,omitempty"`
	PnLPercent   *decimal.Decimal `json:"pnl_percent,omitempty"`
	// StopLossDistance is current price minus stop; RiskAmount is the
	// loss if the stop fills. Both are nil without a stop-loss or price.
	StopLossDistance *decimal.Decimal `json:"stop_loss_distance,omitempty"`
	RiskAmount       *decimal.Decimal `json:"risk_amount,omitempty"`
	// Weight is the position's share of total portfolio value in base
	// currency, as a ratio.
	Weight *decimal.Decimal `json:"weight,omitempty"`
}

// CurrencySubtotal carries per-currency totals in that currency's native
// units, before base-currency normalization.
type CurrencySubtotal struct {
	Currency    string          `json:"currency"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
	MarketValue decimal.Decimal `json:"market_value"`
	PnL         decimal.Decimal `json:"pnl"`
	Positions   int             `json:"positions"`
}

// PortfolioMetrics is the full portfolio report: per-position metrics,
// native-currency subtotals, and totals normalized into BaseCurrency.
type PortfolioMetrics struct {
	FundID       string    `json:"fund_id"`
	Date         time.Time `json:"date"`
	BaseCurrency string    `json:"base_currency"`

	Positions   []PositionMetrics            `json:"positions"`
	ByCurrency  map[string]*CurrencySubtotal `json:"by_currency"`
	TotalValue  decimal.Decimal              `json:"total_value"`
	TotalCost   decimal.Decimal              `json:"total_cost"`
	TotalPnL    decimal.Decimal              `json:"total_pnl"`
	PnLPercent  decimal.Decimal              `json:"pnl_percent"`
	CashValue   decimal.Decimal              `json:"cash_value"`
	Skipped     int                          `json:"skipped"`
	PricedCount int                          `json:"priced_count"`
}

// PositionSizeRecommendation is the output of risk-based position sizing.
type PositionSizeRecommendation struct {
	Shares        decimal.Decimal `json:"shares"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	RiskAmount    decimal.Decimal `json:"risk_amount"`
	// Capped reports that the notional hit the maximum position fraction
	// and shares were reduced to fit.
	Capped bool `json:"capped"`
}

// OwnershipStake is one contributor's share of the fund.
type OwnershipStake struct {
	Contributor string `json:"contributor"`
	// Net contributed capital: contributions minus withdrawals.
	NetContributed decimal.Decimal `json:"net_contributed"`
	// Percent of the fund owned, expressed out of 100.
	Percent decimal.Decimal `json:"percent"`
	// CurrentValue is the contributor's slice of fund value.
	CurrentValue decimal.Decimal `json:"current_value"`
}

// LiquidationPlan answers whether a withdrawal fits inside a
// contributor's stake and what remains afterwards.
type LiquidationPlan struct {
	Contributor      string          `json:"contributor"`
	CurrentValue     decimal.Decimal `json:"current_value"`
	RequestedAmount  decimal.Decimal `json:"requested_amount"`
	RemainingValue   decimal.Decimal `json:"remaining_value"`
	RemainingPercent decimal.Decimal `json:"remaining_percent"`
}

// ConversionResult is the outcome of a currency conversion with the
// exchange fee charged on the source amount before the rate applies.
type ConversionResult struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	BeforeFee decimal.Decimal `json:"before_fee"`
	Fee       decimal.Decimal `json:"fee"`
	AfterFee  decimal.Decimal `json:"after_fee"`
}
