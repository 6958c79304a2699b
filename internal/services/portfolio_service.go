package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/quietmaple/microfolio/internal/errors"
	"github.com/quietmaple/microfolio/internal/models"
	"github.com/quietmaple/microfolio/internal/money"
)

// Position sizing limits: a trade without a stop-loss sizes to a fixed
// slice of capital, and no single position may exceed a quarter of
// capital.
var (
	defaultSizeFraction = decimal.RequireFromString("0.10")
	maxPositionFraction = decimal.RequireFromString("0.25")
)

// PortfolioServiceImpl implements PortfolioService
type PortfolioServiceImpl struct {
	currency CurrencyService
	base     string
	logger   *zap.Logger
}

// NewPortfolioService creates a portfolio service that normalizes totals
// into baseCurrency.
func NewPortfolioService(currency CurrencyService, baseCurrency string, logger *zap.Logger) PortfolioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioServiceImpl{currency: currency, base: baseCurrency, logger: logger}
}

// PositionMetrics derives one position's reportable metrics. The quote,
// when present, takes precedence over the price stored on the position;
// with neither, market-dependent fields stay nil. A position carrying a
// stop-loss also reports its distance from the current price and the
// loss a fill would realize.
func (s *PortfolioServiceImpl) PositionMetrics(position models.Position, quote *models.Quote) models.PositionMetrics {
	pm := models.PositionMetrics{
		Ticker:    position.Ticker,
		Name:      position.Name,
		Currency:  position.CurrencyOrClassified(),
		Shares:    money.QuantizeShares(position.Shares),
		AvgPrice:  money.Quantize(position.AvgPrice),
		CostBasis: money.CostBasis(position.AvgPrice, position.Shares),
	}

	var price *decimal.Decimal
	if quote != nil {
		p := money.Quantize(quote.Price)
		price = &p
	} else if position.CurrentPrice != nil {
		p := money.Quantize(*position.CurrentPrice)
		price = &p
	}
	if price == nil {
		return pm
	}

	value := money.PositionValue(*price, position.Shares)
	pnl := money.PnL(*price, position.AvgPrice, position.Shares)
	pct := money.PercentageChange(position.AvgPrice, *price)

	pm.CurrentPrice = price
	pm.MarketValue = &value
	pm.PnL = &pnl
	pm.PnLPercent = &pct

	if position.StopLoss != nil {
		distance := price.Sub(money.Quantize(*position.StopLoss))
		risk := money.PnL(*price, *position.StopLoss, position.Shares)
		pm.StopLossDistance = &distance
		pm.RiskAmount = &risk
	}
	return pm
}

// PortfolioMetrics builds the full report for a snapshot. Per-currency
// subtotals stay in their native currency; totals and weights are
// normalized into the base currency at the snapshot date with fee-free
// conversions. Invalid positions are excluded and counted, never
// zero-filled; unpriced positions appear in the report but contribute
// nothing to totals.
func (s *PortfolioServiceImpl) PortfolioMetrics(ctx context.Context, snapshot *models.PortfolioSnapshot, quotes map[string]*models.Quote) (*models.PortfolioMetrics, error) {
	if snapshot == nil {
		return nil, apperrors.NewValidation("snapshot", "is required")
	}
	if snapshot.FundID == "" {
		return nil, apperrors.NewValidation("fund_id", "is required")
	}
	if snapshot.Date.IsZero() {
		return nil, apperrors.NewValidation("date", "is required")
	}

	d := models.DateOnly(snapshot.Date)
	report := &models.PortfolioMetrics{
		FundID:       snapshot.FundID,
		Date:         d,
		BaseCurrency: s.base,
		ByCurrency:   make(map[string]*models.CurrencySubtotal),
		TotalValue:   decimal.Zero,
		TotalCost:    decimal.Zero,
		TotalPnL:     decimal.Zero,
		PnLPercent:   decimal.Zero,
		CashValue:    decimal.Zero,
	}

	for i := range snapshot.Positions {
		p := &snapshot.Positions[i]
		if err := p.Validate(); err != nil {
			report.Skipped++
			s.logger.Warn("excluding invalid position from portfolio report",
				zap.String("ticker", p.Ticker),
				zap.Error(err))
			continue
		}
		pm := s.PositionMetrics(*p, quotes[p.Ticker])

		if p.Currency != "" && p.Currency != models.CurrencyForTicker(p.Ticker) {
			s.logger.Warn("position currency disagrees with ticker classification",
				zap.String("ticker", p.Ticker),
				zap.String("explicit", p.Currency),
				zap.String("classified", models.CurrencyForTicker(p.Ticker)))
		}

		report.Positions = append(report.Positions, pm)

		if pm.MarketValue == nil {
			report.Skipped++
			s.logger.Warn("position has no price, excluded from totals",
				zap.String("ticker", p.Ticker))
			continue
		}
		report.PricedCount++

		sub, ok := report.ByCurrency[pm.Currency]
		if !ok {
			sub = &models.CurrencySubtotal{
				Currency:    pm.Currency,
				CostBasis:   decimal.Zero,
				MarketValue: decimal.Zero,
				PnL:         decimal.Zero,
			}
			report.ByCurrency[pm.Currency] = sub
		}
		sub.Positions++
		sub.CostBasis = sub.CostBasis.Add(pm.CostBasis)
		sub.MarketValue = sub.MarketValue.Add(*pm.MarketValue)
		sub.PnL = sub.PnL.Add(*pm.PnL)
	}

	// One conversion per currency, at the snapshot date and fee-free.
	currencies := make([]string, 0, len(report.ByCurrency))
	for cur := range report.ByCurrency {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)

	rates := make(map[string]decimal.Decimal, len(currencies))
	for _, cur := range currencies {
		rate, err := s.currency.GetRate(ctx, cur, s.base, d)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize %s into %s: %w", cur, s.base, err)
		}
		rates[cur] = rate

		sub := report.ByCurrency[cur]
		report.TotalCost = report.TotalCost.Add(money.Quantize(sub.CostBasis.Mul(rate)))
		report.TotalValue = report.TotalValue.Add(money.Quantize(sub.MarketValue.Mul(rate)))
		report.TotalPnL = report.TotalPnL.Add(money.Quantize(sub.PnL.Mul(rate)))
	}

	usdcad, err := s.currency.GetRate(ctx, models.CurrencyUSD, models.CurrencyCAD, d)
	if err != nil {
		return nil, fmt.Errorf("failed to value cash: %w", err)
	}
	cash := models.CashBalances{FundID: snapshot.FundID, CAD: snapshot.CashCAD, USD: snapshot.CashUSD}
	cashValue, err := cash.TotalIn(s.base, usdcad)
	if err != nil {
		return nil, fmt.Errorf("failed to value cash: %w", err)
	}
	report.CashValue = cashValue

	if !report.TotalCost.IsZero() {
		report.PnLPercent = money.QuantizeRatio(report.TotalPnL.Div(report.TotalCost))
	}

	if !report.TotalValue.IsZero() {
		for i := range report.Positions {
			pm := &report.Positions[i]
			if pm.MarketValue == nil {
				continue
			}
			bv := money.Quantize(pm.MarketValue.Mul(rates[pm.Currency]))
			w := money.QuantizeRatio(bv.Div(report.TotalValue))
			pm.Weight = &w
		}
	}

	return report, nil
}

// PositionSize recommends how many shares to buy for a new trade. With a
// stop-loss, shares = riskAmount / |entry - stop|; without one, the
// trade sizes to a fixed fraction of capital. Either way the notional is
// capped at a quarter of capital.
func (s *PortfolioServiceImpl) PositionSize(capital, riskPct, entryPrice decimal.Decimal, stopLoss *decimal.Decimal) (*models.PositionSizeRecommendation, error) {
	if capital.IsZero() || capital.IsNegative() {
		return nil, apperrors.NewValidation("capital", "must be positive")
	}
	if riskPct.IsZero() || riskPct.IsNegative() || riskPct.GreaterThan(decimal.NewFromInt(1)) {
		return nil, apperrors.NewValidation("risk_pct", "must be in (0, 1]")
	}
	if entryPrice.IsZero() || entryPrice.IsNegative() {
		return nil, apperrors.NewValidation("entry_price", "must be positive")
	}
	if stopLoss != nil {
		if stopLoss.IsNegative() {
			return nil, apperrors.NewValidation("stop_loss", "must be non-negative")
		}
		if stopLoss.Equal(entryPrice) {
			return nil, apperrors.NewValidation("stop_loss", "must differ from entry price")
		}
	}

	riskAmount := money.Quantize(capital.Mul(riskPct))
	entry := money.Quantize(entryPrice)

	var shares decimal.Decimal
	if stopLoss != nil {
		perShareRisk := entry.Sub(money.Quantize(*stopLoss)).Abs()
		shares = money.QuantizeShares(riskAmount.Div(perShareRisk))
	} else {
		shares = money.QuantizeShares(capital.Mul(defaultSizeFraction).Div(entry))
	}

	rec := &models.PositionSizeRecommendation{RiskAmount: riskAmount}

	limit := money.Quantize(capital.Mul(maxPositionFraction))
	if money.CostBasis(entry, shares).GreaterThan(limit) {
		shares = money.QuantizeShares(limit.Div(entry))
		rec.Capped = true
	}

	rec.Shares = shares
	rec.EstimatedCost = money.CostBasis(entry, shares)
	return rec, nil
}

// OwnershipStakes allocates fund value across contributors in proportion
// to net contributed capital. Contributors whose withdrawals consumed
// their contributions are excluded. The final stake absorbs the rounding
// remainder so percents sum to exactly 100 and values to exactly the
// fund value.
func (s *PortfolioServiceImpl) OwnershipStakes(contributions []models.Contribution, fundValue decimal.Decimal) ([]models.OwnershipStake, error) {
	if fundValue.IsNegative() {
		return nil, apperrors.NewValidation("fund_value", "must be non-negative")
	}

	nets := models.NetContributions(contributions)
	names := make([]string, 0, len(nets))
	totalNet := decimal.Zero
	for name, net := range nets {
		if net.IsPositive() {
			names = append(names, name)
			totalNet = totalNet.Add(net)
		} else {
			s.logger.Warn("contributor has no positive net contribution, excluded from ownership",
				zap.String("contributor", name),
				zap.String("net", net.String()))
		}
	}
	if len(names) == 0 {
		return []models.OwnershipStake{}, nil
	}
	sort.Strings(names)

	value := money.Quantize(fundValue)
	hundred := decimal.NewFromInt(100)
	stakes := make([]models.OwnershipStake, 0, len(names))
	remainingValue := value
	remainingPct := hundred

	for i, name := range names {
		net := nets[name]
		stake := models.OwnershipStake{
			Contributor:    name,
			NetContributed: money.Quantize(net),
		}
		if i == len(names)-1 {
			stake.Percent = remainingPct
			stake.CurrentValue = remainingValue
		} else {
			stake.Percent = net.Mul(hundred).Div(totalNet).Round(2)
			stake.CurrentValue = money.Quantize(value.Mul(net).Div(totalNet))
			remainingPct = remainingPct.Sub(stake.Percent)
			remainingValue = remainingValue.Sub(stake.CurrentValue)
		}
		stakes = append(stakes, stake)
	}
	return stakes, nil
}

// LiquidationRequirement checks whether a contributor can withdraw the
// requested amount from their stake. Withdrawals above the stake's
// current value are an error result, never a clamp.
func (s *PortfolioServiceImpl) LiquidationRequirement(contributor string, amount decimal.Decimal, stakes []models.OwnershipStake) (*models.LiquidationPlan, error) {
	if amount.IsZero() || amount.IsNegative() {
		return nil, apperrors.NewValidation("amount", "must be positive")
	}

	var stake *models.OwnershipStake
	fundValue := decimal.Zero
	for i := range stakes {
		fundValue = fundValue.Add(stakes[i].CurrentValue)
		if stakes[i].Contributor == contributor {
			stake = &stakes[i]
		}
	}
	if stake == nil {
		return nil, apperrors.NewValidation("contributor", "has no ownership stake")
	}

	requested := money.Quantize(amount)
	if requested.GreaterThan(stake.CurrentValue) {
		return nil, apperrors.NewValidation("amount",
			fmt.Sprintf("exceeds contributor value: requested %s, available %s",
				requested.StringFixed(2), stake.CurrentValue.StringFixed(2)))
	}

	remaining := money.Quantize(stake.CurrentValue.Sub(requested))
	fundAfter := fundValue.Sub(requested)
	remainingPct := decimal.Zero
	if !fundAfter.IsZero() {
		remainingPct = remaining.Mul(decimal.NewFromInt(100)).Div(fundAfter).Round(2)
	}

	return &models.LiquidationPlan{
		Contributor:      contributor,
		CurrentValue:     stake.CurrentValue,
		RequestedAmount:  requested,
		RemainingValue:   remaining,
		RemainingPercent: remainingPct,
	}, nil
}

var _ PortfolioService = (*PortfolioServiceImpl)(nil)
