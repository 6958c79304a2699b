package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quietmaple/microfolio/internal/models"
)

// CurrencyService defines the interface for ticker classification and
// exchange-rate resolution
type CurrencyService interface {
	// Classify maps a ticker symbol to its trading currency.
	Classify(ticker string) string

	// GetRate resolves the exchange rate for a pair on a date: cache
	// first, then the live source when configured, then the default
	// table. Same-currency pairs resolve to one without any lookup.
	GetRate(ctx context.Context, from, to string, date time.Time) (decimal.Decimal, error)

	// GetHistoricalRate resolves against stored rate history only: the
	// most recent rate on or before date. Requests before the earliest
	// stored rate fail with ErrInsufficientHistory and must not fall
	// back to live or default rates.
	GetHistoricalRate(ctx context.Context, from, to string, date time.Time) (decimal.Decimal, error)

	// Convert exchanges amount between currencies, charging feeRate on
	// the source amount before the rate applies.
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, feeRate decimal.Decimal, date time.Time) (*models.ConversionResult, error)

	// SetDefaultRate overrides the fallback rate for a pair and installs
	// the reciprocal for the reverse pair.
	SetDefaultRate(from, to string, rate decimal.Decimal) error

	// InvalidateRate drops one cached (from, to, date) entry.
	InvalidateRate(from, to string, date time.Time)

	// InvalidateAll clears the rate cache.
	InvalidateAll()
}

// RateSource supplies live exchange rates. Returning (nil, nil) means the
// source has no data for the pair and date, which is not an error.
type RateSource interface {
	FetchRate(ctx context.Context, from, to string, date time.Time) (*models.FXRate, error)
}

// QuoteProvider supplies market prices. Returning (nil, nil) means no
// data for the ticker, which callers must keep distinct from a zero
// price.
type QuoteProvider interface {
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)
}

// TradingCalendar answers whether an exchange trades on a given date
type TradingCalendar interface {
	IsTradingDay(date time.Time, market models.Market) bool
	Holidays(year int, market models.Market) []time.Time
}

// PnLService defines the interface for profit-and-loss computation
type PnLService interface {
	// PositionPnL computes unrealized P&L of a holding against its
	// average cost.
	PositionPnL(currentPrice, avgPrice, shares decimal.Decimal) models.PnLBreakdown

	// DailyPnL computes intraday P&L against the day's open.
	DailyPnL(openPrice, currentPrice, shares decimal.Decimal) models.PnLBreakdown

	// PeriodPnL computes P&L for a holding over a lookback window,
	// against the price at the window's start. label names the window
	// ("1W", "1M") and is carried through to the breakdown.
	PeriodPnL(currentPrice, periodStartPrice, shares decimal.Decimal, label string) models.PnLBreakdown

	// DailyPnLFromSnapshots reconciles one ticker's daily P&L from
	// snapshot history. It never fails: outcomes that cannot be
	// computed return a result with Computed set to false.
	DailyPnLFromSnapshots(ctx context.Context, ticker string, date time.Time, snapshots []models.PortfolioSnapshot) models.DailyPnLResult

	// PortfolioPnL aggregates unrealized P&L across positions,
	// excluding those that fail the validity rule. Amounts are summed
	// as given; currency normalization is the portfolio service's job.
	PortfolioPnL(ctx context.Context, positions []models.Position) models.PortfolioPnLSummary

	// Performance composes portfolio P&L with cash and contributions
	// into fund-level metrics, normalized to the service's base
	// currency as of date.
	Performance(ctx context.Context, date time.Time, positions []models.Position, cash *models.CashBalances, contributions []models.Contribution) (*models.PerformanceMetrics, error)
}

// PortfolioService defines the interface for portfolio aggregation,
// position sizing, and contributor accounting
type PortfolioService interface {
	// PositionMetrics derives the reportable metrics of one position
	// from an optional quote. Market-dependent fields stay nil without
	// a quote.
	PositionMetrics(position models.Position, quote *models.Quote) models.PositionMetrics

	// PortfolioMetrics builds the full portfolio report for a snapshot,
	// normalizing totals into the base currency at the snapshot date.
	PortfolioMetrics(ctx context.Context, snapshot *models.PortfolioSnapshot, quotes map[string]*models.Quote) (*models.PortfolioMetrics, error)

	// PositionSize recommends a share count for a new trade from
	// available capital, a risk fraction, and entry/stop prices.
	PositionSize(capital, riskPct, entryPrice decimal.Decimal, stopLoss *decimal.Decimal) (*models.PositionSizeRecommendation, error)

	// OwnershipStakes allocates fund value across contributors by net
	// contributed capital.
	OwnershipStakes(contributions []models.Contribution, fundValue decimal.Decimal) ([]models.OwnershipStake, error)

	// LiquidationRequirement checks whether a withdrawal fits inside a
	// contributor's stake.
	LiquidationRequirement(contributor string, amount decimal.Decimal, stakes []models.OwnershipStake) (*models.LiquidationPlan, error)
}
