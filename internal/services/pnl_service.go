package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quietmaple/microfolio/internal/models"
	"github.com/quietmaple/microfolio/internal/money"
)

// PnLServiceImpl implements PnLService
type PnLServiceImpl struct {
	calendar TradingCalendar
	currency CurrencyService
	base     string
	logger   *zap.Logger
}

// NewPnLService creates a P&L service. baseCurrency is the currency
// Performance normalizes into; calendar picks the prior open-market day
// daily reconciliation measures against.
func NewPnLService(calendar TradingCalendar, currency CurrencyService, baseCurrency string, logger *zap.Logger) PnLService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PnLServiceImpl{
		calendar: calendar,
		currency: currency,
		base:     baseCurrency,
		logger:   logger,
	}
}

func (s *PnLServiceImpl) PositionPnL(currentPrice, avgPrice, shares decimal.Decimal) models.PnLBreakdown {
	return models.PnLBreakdown{
		Absolute:     money.PnL(currentPrice, avgPrice, shares),
		Percent:      money.PercentageChange(avgPrice, currentPrice),
		CostBasis:    money.CostBasis(avgPrice, shares),
		CurrentValue: money.PositionValue(currentPrice, shares),
	}
}

func (s *PnLServiceImpl) DailyPnL(openPrice, currentPrice, shares decimal.Decimal) models.PnLBreakdown {
	return models.PnLBreakdown{
		Absolute:     money.PnL(currentPrice, openPrice, shares),
		Percent:      money.PercentageChange(openPrice, currentPrice),
		CostBasis:    money.CostBasis(openPrice, shares),
		CurrentValue: money.PositionValue(currentPrice, shares),
	}
}

func (s *PnLServiceImpl) PeriodPnL(currentPrice, periodStartPrice, shares decimal.Decimal, label string) models.PnLBreakdown {
	return models.PnLBreakdown{
		Absolute:     money.PnL(currentPrice, periodStartPrice, shares),
		Percent:      money.PercentageChange(periodStartPrice, currentPrice),
		CostBasis:    money.CostBasis(periodStartPrice, shares),
		CurrentValue: money.PositionValue(currentPrice, shares),
		Label:        label,
	}
}

// DailyPnLFromSnapshots reconciles ticker's P&L on date from snapshot
// history. A ticker with no prior observation is a new position and
// measures its first day against the acquisition price. Continuing
// positions measure against the most recent prior observation on a day
// the ticker's market was open, so a weekend or holiday report shows
// the last session's move; snapshots without the ticker are skipped,
// not treated as the end of history. Missing data produces an
// uncomputed result rather than an error, and price moves of a cent or
// less collapse to exactly zero.
func (s *PnLServiceImpl) DailyPnLFromSnapshots(ctx context.Context, ticker string, date time.Time, snapshots []models.PortfolioSnapshot) models.DailyPnLResult {
	d := models.DateOnly(date)
	result := models.DailyPnLResult{Ticker: ticker, Date: d, Amount: decimal.Zero}

	amount, reason, err := s.reconcileDaily(ticker, d, snapshots)
	if err != nil {
		// Reconciliation never brings the caller down: log and return
		// the uncomputed sentinel.
		s.logger.Warn("daily pnl reconciliation failed",
			zap.String("ticker", ticker),
			zap.Time("date", d),
			zap.Error(err))
		result.Reason = models.ReasonBadSnapshot
		return result
	}
	if reason != "" {
		result.Reason = reason
		return result
	}

	result.Computed = true
	result.Amount = amount
	return result
}

func (s *PnLServiceImpl) reconcileDaily(ticker string, d time.Time, snapshots []models.PortfolioSnapshot) (decimal.Decimal, string, error) {
	ordered := make([]models.PortfolioSnapshot, len(snapshots))
	copy(ordered, snapshots)
	for i := range ordered {
		ordered[i].Date = models.DateOnly(ordered[i].Date)
	}
	// Input order is not trusted.
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	var today *models.Position
	for i := len(ordered) - 1; i >= 0; i-- {
		if ordered[i].Date.Equal(d) {
			today = ordered[i].FindPosition(ticker)
			break
		}
	}
	if today == nil || today.CurrentPrice == nil {
		return decimal.Zero, models.ReasonNoCurrentday, nil
	}
	if today.CurrentPrice.IsNegative() || today.Shares.IsNegative() || today.AvgPrice.IsNegative() {
		return decimal.Zero, "", fmt.Errorf("snapshot %s has invalid data for %s", d.Format("2006-01-02"), ticker)
	}
	current := money.Quantize(*today.CurrentPrice)

	// A ticker held in no snapshot before d is a new position: its
	// first day measures against the acquisition price instead of a
	// prior close.
	if !appearsBefore(ordered, ticker, d) {
		return thresholdedPnL(current, money.Quantize(today.AvgPrice), today.Shares), "", nil
	}

	// Continuing position: scan backwards for the most recent prior
	// observation, skipping dates the ticker's market was closed so a
	// weekend or holiday report measures against the last open day.
	// A snapshot that does not hold the ticker does not stop the scan.
	market := models.MarketForTicker(ticker)
	for i := len(ordered) - 1; i >= 0; i-- {
		if !ordered[i].Date.Before(d) {
			continue
		}
		if s.calendar != nil && !s.calendar.IsTradingDay(ordered[i].Date, market) {
			continue
		}
		pos := ordered[i].FindPosition(ticker)
		if pos == nil || pos.CurrentPrice == nil {
			continue
		}
		if pos.CurrentPrice.IsNegative() {
			return decimal.Zero, "", fmt.Errorf("prior snapshot %s has invalid data for %s", ordered[i].Date.Format("2006-01-02"), ticker)
		}
		return thresholdedPnL(current, money.Quantize(*pos.CurrentPrice), today.Shares), "", nil
	}
	return decimal.Zero, models.ReasonNoPriorData, nil
}

// appearsBefore reports whether any snapshot dated strictly before d
// holds the ticker, priced or not.
func appearsBefore(ordered []models.PortfolioSnapshot, ticker string, d time.Time) bool {
	for i := range ordered {
		if !ordered[i].Date.Before(d) {
			continue
		}
		if ordered[i].FindPosition(ticker) != nil {
			return true
		}
	}
	return false
}

// thresholdedPnL is (current - baseline) * shares. A price move of one
// cent or less is noise and collapses to a computed zero.
func thresholdedPnL(current, baseline, shares decimal.Decimal) decimal.Decimal {
	if !current.Sub(baseline).Abs().GreaterThan(money.OneCent) {
		return decimal.Zero
	}
	return money.PnL(current, baseline, shares)
}

// PortfolioPnL aggregates unrealized P&L across positions. Positions
// failing the validity rule are excluded and counted, never zero-filled.
func (s *PnLServiceImpl) PortfolioPnL(ctx context.Context, positions []models.Position) models.PortfolioPnLSummary {
	summary := models.PortfolioPnLSummary{
		TotalCostBasis: decimal.Zero,
		TotalValue:     decimal.Zero,
		TotalPnL:       decimal.Zero,
		PnLPercent:     decimal.Zero,
	}

	for i := range positions {
		p := &positions[i]
		if !p.Valid() {
			summary.Skipped++
			s.logger.Warn("excluding invalid position from portfolio pnl",
				zap.String("ticker", p.Ticker),
				zap.Bool("has_price", p.CurrentPrice != nil))
			continue
		}

		summary.Positions++
		summary.TotalCostBasis = summary.TotalCostBasis.Add(money.CostBasis(p.AvgPrice, p.Shares))
		summary.TotalValue = summary.TotalValue.Add(money.PositionValue(*p.CurrentPrice, p.Shares))
		summary.TotalPnL = summary.TotalPnL.Add(money.PnL(*p.CurrentPrice, p.AvgPrice, p.Shares))
	}

	if !summary.TotalCostBasis.IsZero() {
		summary.PnLPercent = money.QuantizeRatio(summary.TotalPnL.Div(summary.TotalCostBasis))
	}
	return summary
}

// Performance composes position P&L, cash, and contribution history into
// fund-level metrics in the service's base currency. Valuation
// conversions are fee-free.
func (s *PnLServiceImpl) Performance(ctx context.Context, date time.Time, positions []models.Position, cash *models.CashBalances, contributions []models.Contribution) (*models.PerformanceMetrics, error) {
	d := models.DateOnly(date)
	metrics := &models.PerformanceMetrics{
		TotalMarketValue:    decimal.Zero,
		TotalCash:           decimal.Zero,
		TotalPortfolioValue: decimal.Zero,
		TotalCostBasis:      decimal.Zero,
		TotalPnL:            decimal.Zero,
		ReturnPercent:       decimal.Zero,
		NetContributions:    decimal.Zero,
		WinRate:             decimal.Zero,
	}

	for i := range positions {
		p := &positions[i]
		if !p.Valid() {
			s.logger.Warn("excluding invalid position from performance",
				zap.String("ticker", p.Ticker),
				zap.Bool("has_price", p.CurrentPrice != nil))
			continue
		}

		rate, err := s.currency.GetRate(ctx, p.CurrencyOrClassified(), s.base, d)
		if err != nil {
			return nil, fmt.Errorf("failed to value %s in %s: %w", p.Ticker, s.base, err)
		}

		cost := money.CostBasis(p.AvgPrice, p.Shares)
		value := money.PositionValue(*p.CurrentPrice, p.Shares)
		pnl := money.PnL(*p.CurrentPrice, p.AvgPrice, p.Shares)

		metrics.TotalCostBasis = metrics.TotalCostBasis.Add(money.Quantize(cost.Mul(rate)))
		metrics.TotalMarketValue = metrics.TotalMarketValue.Add(money.Quantize(value.Mul(rate)))
		metrics.TotalPnL = metrics.TotalPnL.Add(money.Quantize(pnl.Mul(rate)))

		metrics.PositionsWithPnL++
		switch {
		case pnl.IsPositive():
			metrics.WinningPositions++
		case pnl.IsNegative():
			metrics.LosingPositions++
		}
	}

	if cash != nil {
		usdcad, err := s.currency.GetRate(ctx, models.CurrencyUSD, models.CurrencyCAD, d)
		if err != nil {
			return nil, fmt.Errorf("failed to value cash: %w", err)
		}
		total, err := cash.TotalIn(s.base, usdcad)
		if err != nil {
			return nil, fmt.Errorf("failed to value cash: %w", err)
		}
		metrics.TotalCash = total
	}

	for i := range contributions {
		metrics.NetContributions = metrics.NetContributions.Add(contributions[i].Signed())
	}

	metrics.TotalPortfolioValue = money.Quantize(metrics.TotalMarketValue.Add(metrics.TotalCash))
	if !metrics.TotalCostBasis.IsZero() {
		metrics.ReturnPercent = money.QuantizeRatio(metrics.TotalPnL.Div(metrics.TotalCostBasis))
	}

	// The denominator floors at one so an empty portfolio yields a zero
	// rate instead of a division error.
	denominator := metrics.PositionsWithPnL
	if denominator < 1 {
		denominator = 1
	}
	metrics.WinRate = money.QuantizeRatio(
		decimal.NewFromInt(int64(metrics.WinningPositions)).Div(decimal.NewFromInt(int64(denominator))))

	return metrics, nil
}

var _ PnLService = (*PnLServiceImpl)(nil)
