package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/quietmaple/microfolio/internal/errors"
	"github.com/quietmaple/microfolio/internal/models"
	"github.com/quietmaple/microfolio/internal/money"
)

// RateHistory loads the stored rate history of a currency pair. The rate
// repository implements it; tests use in-memory tables.
type RateHistory interface {
	LoadTable(ctx context.Context, from, to string) (*models.RateTable, error)
}

// CurrencyServiceImpl implements CurrencyService. Resolution order for
// GetRate is cache, then the live source when configured, then the
// default table. Resolved rates are cached per (from, to, date) and only
// explicit invalidation evicts them.
//
// mu guards the three maps so one instance can serve concurrent
// callers. The lock is never held across a source fetch or history
// load; concurrent misses on the same key may fetch twice and the last
// write wins.
type CurrencyServiceImpl struct {
	source  RateSource // optional
	history RateHistory
	logger  *zap.Logger

	mu       sync.RWMutex
	defaults map[string]decimal.Decimal
	cache    map[string]decimal.Decimal
	tables   map[string]*models.RateTable
}

// NewCurrencyService creates a currency service. source and history may
// be nil: without a source rates come from the default table, and without
// history GetHistoricalRate fails with ErrInsufficientHistory.
func NewCurrencyService(source RateSource, history RateHistory, logger *zap.Logger) CurrencyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	usdcad := decimal.RequireFromString("1.35")
	return &CurrencyServiceImpl{
		source:  source,
		history: history,
		defaults: map[string]decimal.Decimal{
			pairKey(models.CurrencyUSD, models.CurrencyCAD): usdcad,
			pairKey(models.CurrencyCAD, models.CurrencyUSD): decimal.NewFromInt(1).Div(usdcad),
		},
		cache:  make(map[string]decimal.Decimal),
		tables: make(map[string]*models.RateTable),
		logger: logger,
	}
}

// SetDefaultRate overrides the fallback rate for a pair and installs the
// reciprocal for the reverse pair.
func (s *CurrencyServiceImpl) SetDefaultRate(from, to string, rate decimal.Decimal) error {
	if rate.IsZero() || rate.IsNegative() {
		return apperrors.NewValidation("rate", "must be positive")
	}
	s.mu.Lock()
	s.defaults[pairKey(from, to)] = rate
	s.defaults[pairKey(to, from)] = decimal.NewFromInt(1).Div(rate)
	s.mu.Unlock()
	return nil
}

func (s *CurrencyServiceImpl) Classify(ticker string) string {
	return models.CurrencyForTicker(ticker)
}

func (s *CurrencyServiceImpl) GetRate(ctx context.Context, from, to string, date time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	d := models.DateOnly(date)
	key := cacheKey(from, to, d)
	s.mu.RLock()
	rate, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return rate, nil
	}

	if s.source != nil {
		fetched, err := s.source.FetchRate(ctx, from, to, d)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to fetch rate %s/%s: %w", from, to, err)
		}
		if fetched != nil {
			s.mu.Lock()
			s.cache[key] = fetched.Rate
			s.mu.Unlock()
			return fetched.Rate, nil
		}
		s.logger.Debug("rate source has no data, falling back to defaults",
			zap.String("from", from), zap.String("to", to), zap.Time("date", d))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rate, ok := s.defaults[pairKey(from, to)]; ok {
		s.cache[key] = rate
		return rate, nil
	}

	return decimal.Zero, &apperrors.ErrNoRate{From: from, To: to}
}

func (s *CurrencyServiceImpl) GetHistoricalRate(ctx context.Context, from, to string, date time.Time) (decimal.Decimal, error) {
	table, err := s.table(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := table.RateOn(date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to resolve historical rate: %w", err)
	}
	return rate, nil
}

func (s *CurrencyServiceImpl) table(ctx context.Context, from, to string) (*models.RateTable, error) {
	key := pairKey(from, to)
	s.mu.RLock()
	t, ok := s.tables[key]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}
	if s.history == nil {
		return models.NewRateTable(from, to, nil), nil
	}
	t, err := s.history.LoadTable(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate history %s/%s: %w", from, to, err)
	}
	s.mu.Lock()
	s.tables[key] = t
	s.mu.Unlock()
	return t, nil
}

// Convert exchanges amount from one currency to another. The fee is
// charged on the source amount before the rate applies, so
// afterFee = (amount - amount*feeRate) * rate.
func (s *CurrencyServiceImpl) Convert(ctx context.Context, amount decimal.Decimal, from, to string, feeRate decimal.Decimal, date time.Time) (*models.ConversionResult, error) {
	if amount.IsNegative() {
		return nil, apperrors.NewValidation("amount", "must be non-negative")
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, apperrors.NewValidation("fee_rate", "must be in [0, 1)")
	}

	rate, err := s.GetRate(ctx, from, to, date)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s to %s: %w", from, to, err)
	}

	src := money.Quantize(amount)
	fee := money.Quantize(src.Mul(feeRate))
	afterFee := money.Quantize(src.Sub(fee).Mul(rate))
	beforeFee := money.Quantize(src.Mul(rate))

	return &models.ConversionResult{
		From:      from,
		To:        to,
		Rate:      rate,
		BeforeFee: beforeFee,
		Fee:       fee,
		AfterFee:  afterFee,
	}, nil
}

func (s *CurrencyServiceImpl) InvalidateRate(from, to string, date time.Time) {
	s.mu.Lock()
	delete(s.cache, cacheKey(from, to, models.DateOnly(date)))
	s.mu.Unlock()
}

func (s *CurrencyServiceImpl) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string]decimal.Decimal)
	s.tables = make(map[string]*models.RateTable)
	s.mu.Unlock()
}

func pairKey(from, to string) string {
	return from + ":" + to
}

func cacheKey(from, to string, d time.Time) string {
	return fmt.Sprintf("%s:%s:%s", from, to, d.Format("2006-01-02"))
}

var _ CurrencyService = (*CurrencyServiceImpl)(nil)
