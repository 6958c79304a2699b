package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietmaple/microfolio/internal/models"
)

func seedRate(from, to, rate string, y int, m time.Month, d int) *models.FXRate {
	return &models.FXRate{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         decimal.RequireFromString(rate),
		Date:         day(y, m, d),
		Source:       models.FXSourceSeed,
	}
}

func TestRateRepository_SaveAndLoadTable(t *testing.T) {
	repo := NewRateRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SaveRate(ctx, seedRate("USD", "CAD", "1.35", 2025, 6, 2)))
	require.NoError(t, repo.SaveRate(ctx, seedRate("USD", "CAD", "1.37", 2025, 6, 5)))
	require.NoError(t, repo.SaveRate(ctx, seedRate("CAD", "USD", "0.74", 2025, 6, 2)))

	table, err := repo.LoadTable(ctx, "USD", "CAD")
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len(), "the inverse pair is a separate table")

	// Gap days resolve to the most recent rate on or before.
	rate, err := table.RateOn(day(2025, 6, 4))
	require.NoError(t, err)
	assert.Equal(t, "1.35", rate.StringFixed(2))

	rate, err = table.RateOn(day(2025, 6, 5))
	require.NoError(t, err)
	assert.Equal(t, "1.37", rate.StringFixed(2))
}

func TestRateRepository_SameDayOverwrites(t *testing.T) {
	repo := NewRateRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.SaveRate(ctx, seedRate("USD", "CAD", "1.35", 2025, 6, 2)))

	manual := seedRate("USD", "CAD", "1.36", 2025, 6, 2)
	manual.Source = models.FXSourceManual
	require.NoError(t, repo.SaveRate(ctx, manual))

	table, err := repo.LoadTable(ctx, "USD", "CAD")
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	rate, err := table.RateOn(day(2025, 6, 2))
	require.NoError(t, err)
	assert.Equal(t, "1.36", rate.StringFixed(2))

	latest, err := repo.LatestRate(ctx, "USD", "CAD")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.FXSourceManual, latest.Source)
}

func TestRateRepository_LatestRateMissing(t *testing.T) {
	repo := NewRateRepository(newTestDB(t))

	latest, err := repo.LatestRate(context.Background(), "USD", "JPY")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRateRepository_EmptyTable(t *testing.T) {
	repo := NewRateRepository(newTestDB(t))

	table, err := repo.LoadTable(context.Background(), "USD", "JPY")
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestRateRepository_Validation(t *testing.T) {
	repo := NewRateRepository(newTestDB(t))

	err := repo.SaveRate(context.Background(), seedRate("USD", "USD", "1.00", 2025, 6, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
