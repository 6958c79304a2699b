package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/quietmaple/microfolio/internal/errors"
	"github.com/quietmaple/microfolio/internal/models"
)

// countingRateSource wraps a static source and counts fetches so cache
// behavior is observable.
type countingRateSource struct {
	inner   *StaticRateSource
	fetches int
}

func (c *countingRateSource) FetchRate(ctx context.Context, from, to string, date time.Time) (*models.FXRate, error) {
	c.fetches++
	return c.inner.FetchRate(ctx, from, to, date)
}

// tableHistory serves canned rate tables per pair.
type tableHistory struct {
	tables map[string]*models.RateTable
}

func (h *tableHistory) LoadTable(ctx context.Context, from, to string) (*models.RateTable, error) {
	if t, ok := h.tables[from+":"+to]; ok {
		return t, nil
	}
	return models.NewRateTable(from, to, nil), nil
}

func TestCurrencyService_Classify(t *testing.T) {
	svc := NewCurrencyService(nil, nil, nil)
	assert.Equal(t, models.CurrencyUSD, svc.Classify("ABEO"))
	assert.Equal(t, models.CurrencyCAD, svc.Classify("SHOP.TO"))
}

func TestCurrencyService_SameCurrencyIsUnity(t *testing.T) {
	src := &countingRateSource{inner: NewStaticRateSource(nil)}
	svc := NewCurrencyService(src, nil, nil)

	rate, err := svc.GetRate(context.Background(), models.CurrencyUSD, models.CurrencyUSD, date(2025, 6, 2))
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 0, src.fetches, "same-currency must not touch the source")
}

func TestCurrencyService_DefaultTableFallback(t *testing.T) {
	svc := NewCurrencyService(nil, nil, nil)

	rate, err := svc.GetRate(context.Background(), models.CurrencyUSD, models.CurrencyCAD, date(2025, 6, 2))
	require.NoError(t, err)
	assert.Equal(t, "1.35", rate.StringFixed(2))

	inverse, err := svc.GetRate(context.Background(), models.CurrencyCAD, models.CurrencyUSD, date(2025, 6, 2))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Sub(inverse.Mul(rate)).Abs().LessThan(decimal.RequireFromString("0.0000001")))
}

func TestCurrencyService_UnknownPair(t *testing.T) {
	svc := NewCurrencyService(nil, nil, nil)

	_, err := svc.GetRate(context.Background(), "USD", "JPY", date(2025, 6, 2))
	require.Error(t, err)
	assert.True(t, apperrors.IsNoRate(err))
}

func TestCurrencyService_CachePerPairAndDate(t *testing.T) {
	src := &countingRateSource{inner: NewStaticRateSource(map[string]decimal.Decimal{
		"USD:CAD": decimal.RequireFromString("1.36"),
	})}
	svc := NewCurrencyService(src, nil, nil)
	ctx := context.Background()

	d := date(2025, 6, 2)
	first, err := svc.GetRate(ctx, "USD", "CAD", d)
	require.NoError(t, err)
	assert.Equal(t, "1.36", first.StringFixed(2))
	assert.Equal(t, 1, src.fetches)

	// Second resolution on the same date hits the cache.
	_, err = svc.GetRate(ctx, "USD", "CAD", d)
	require.NoError(t, err)
	assert.Equal(t, 1, src.fetches)

	// Same moment later in the day resolves to the same cache entry.
	_, err = svc.GetRate(ctx, "USD", "CAD", d.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, src.fetches)

	// A different date is a different entry.
	_, err = svc.GetRate(ctx, "USD", "CAD", date(2025, 6, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, src.fetches)
}

func TestCurrencyService_ExplicitInvalidation(t *testing.T) {
	src := &countingRateSource{inner: NewStaticRateSource(map[string]decimal.Decimal{
		"USD:CAD": decimal.RequireFromString("1.36"),
	})}
	svc := NewCurrencyService(src, nil, nil)
	ctx := context.Background()
	d := date(2025, 6, 2)

	_, err := svc.GetRate(ctx, "USD", "CAD", d)
	require.NoError(t, err)
	require.Equal(t, 1, src.fetches)

	// No TTL: the entry survives until invalidated.
	svc.InvalidateRate("USD", "CAD", d)
	_, err = svc.GetRate(ctx, "USD", "CAD", d)
	require.NoError(t, err)
	assert.Equal(t, 2, src.fetches)

	svc.InvalidateAll()
	_, err = svc.GetRate(ctx, "USD", "CAD", d)
	require.NoError(t, err)
	assert.Equal(t, 3, src.fetches)
}

func TestCurrencyService_SourceMissFallsBackToDefaults(t *testing.T) {
	src := &countingRateSource{inner: NewStaticRateSource(nil)}
	svc := NewCurrencyService(src, nil, nil)

	rate, err := svc.GetRate(context.Background(), "USD", "CAD", date(2025, 6, 2))
	require.NoError(t, err)
	assert.Equal(t, "1.35", rate.StringFixed(2))
	assert.Equal(t, 1, src.fetches)
}

func TestCurrencyService_Convert(t *testing.T) {
	src := NewStaticRateSource(map[string]decimal.Decimal{
		"USD:CAD": decimal.RequireFromString("1.35"),
	})
	svc := NewCurrencyService(src, nil, nil)

	result, err := svc.Convert(context.Background(),
		decimal.NewFromInt(1000), "USD", "CAD",
		decimal.RequireFromString("0.015"), date(2025, 6, 2))
	require.NoError(t, err)

	// Fee is charged on the source amount before the rate applies.
	assert.Equal(t, "15.00", result.Fee.StringFixed(2))
	assert.Equal(t, "1329.75", result.AfterFee.StringFixed(2))
	assert.Equal(t, "1350.00", result.BeforeFee.StringFixed(2))
	assert.Equal(t, "1.35", result.Rate.StringFixed(2))
	assert.Equal(t, "USD", result.From)
	assert.Equal(t, "CAD", result.To)
}

func TestCurrencyService_ConvertSameCurrency(t *testing.T) {
	svc := NewCurrencyService(nil, nil, nil)

	result, err := svc.Convert(context.Background(),
		decimal.NewFromInt(100), "CAD", "CAD",
		decimal.RequireFromString("0.015"), date(2025, 6, 2))
	require.NoError(t, err)
	assert.Equal(t, "1.50", result.Fee.StringFixed(2))
	assert.Equal(t, "98.50", result.AfterFee.StringFixed(2))
	assert.Equal(t, "100.00", result.BeforeFee.StringFixed(2))
}

func TestCurrencyService_ConvertValidation(t *testing.T) {
	svc := NewCurrencyService(nil, nil, nil)
	ctx := context.Background()
	d := date(2025, 6, 2)

	_, err := svc.Convert(ctx, decimal.NewFromInt(-1), "USD", "CAD", decimal.Zero, d)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Convert(ctx, decimal.NewFromInt(100), "USD", "CAD", decimal.NewFromInt(1), d)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Convert(ctx, decimal.NewFromInt(100), "USD", "CAD", decimal.RequireFromString("-0.01"), d)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	// Zero fee is legal.
	result, err := svc.Convert(ctx, decimal.NewFromInt(100), "USD", "CAD", decimal.Zero, d)
	require.NoError(t, err)
	assert.Equal(t, "0.00", result.Fee.StringFixed(2))
	assert.Equal(t, result.BeforeFee, result.AfterFee)
}

func TestCurrencyService_GetHistoricalRate(t *testing.T) {
	history := &tableHistory{tables: map[string]*models.RateTable{
		"USD:CAD": models.NewRateTable("USD", "CAD", []models.FXRate{
			{FromCurrency: "USD", ToCurrency: "CAD", Rate: decimal.RequireFromString("1.35"), Date: date(2025, 6, 2), Source: models.FXSourceManual},
			{FromCurrency: "USD", ToCurrency: "CAD", Rate: decimal.RequireFromString("1.37"), Date: date(2025, 6, 9), Source: models.FXSourceManual},
		}),
	}}
	svc := NewCurrencyService(nil, history, nil)
	ctx := context.Background()

	rate, err := svc.GetHistoricalRate(ctx, "USD", "CAD", date(2025, 6, 5))
	require.NoError(t, err)
	assert.Equal(t, "1.35", rate.StringFixed(2), "gap resolves to most recent prior rate")

	rate, err = svc.GetHistoricalRate(ctx, "USD", "CAD", date(2025, 6, 9))
	require.NoError(t, err)
	assert.Equal(t, "1.37", rate.StringFixed(2))

	// Requests before the earliest rate are a hard failure, with no
	// fallback to defaults.
	_, err = svc.GetHistoricalRate(ctx, "USD", "CAD", date(2025, 5, 30))
	require.Error(t, err)
	assert.True(t, apperrors.IsInsufficientHistory(err))
}

func TestCurrencyService_HistoricalRateWithoutHistory(t *testing.T) {
	svc := NewCurrencyService(nil, nil, nil)

	_, err := svc.GetHistoricalRate(context.Background(), "USD", "CAD", date(2025, 6, 2))
	require.Error(t, err)
	assert.True(t, apperrors.IsInsufficientHistory(err))
}
