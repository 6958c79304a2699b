package repositories

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietmaple/microfolio/internal/models"
)

func TestCashRepository_GetDefaultsToZero(t *testing.T) {
	repo := NewCashRepository(newTestDB(t))

	balances, err := repo.Get(context.Background(), "chimera")
	require.NoError(t, err)
	assert.Equal(t, "chimera", balances.FundID)
	assert.True(t, balances.CAD.IsZero())
	assert.True(t, balances.USD.IsZero())
}

func TestCashRepository_SaveRoundTrip(t *testing.T) {
	repo := NewCashRepository(newTestDB(t))
	ctx := context.Background()

	balances := models.NewCashBalances("chimera")
	require.NoError(t, balances.Add(models.CurrencyCAD, decimal.RequireFromString("1000.50")))
	require.NoError(t, balances.Add(models.CurrencyUSD, decimal.RequireFromString("250.00")))
	require.NoError(t, repo.Save(ctx, balances))

	got, err := repo.Get(ctx, "chimera")
	require.NoError(t, err)
	assert.Equal(t, "1000.50", got.CAD.StringFixed(2))
	assert.Equal(t, "250.00", got.USD.StringFixed(2))

	// A second save updates in place.
	got.Spend(models.CurrencyCAD, decimal.RequireFromString("400.00"))
	require.NoError(t, repo.Save(ctx, got))

	got, err = repo.Get(ctx, "chimera")
	require.NoError(t, err)
	assert.Equal(t, "600.50", got.CAD.StringFixed(2))
	assert.Equal(t, "250.00", got.USD.StringFixed(2))
}

func TestCashRepository_SaveValidation(t *testing.T) {
	repo := NewCashRepository(newTestDB(t))

	err := repo.Save(context.Background(), &models.CashBalances{FundID: "chimera", CAD: decimal.NewFromInt(-1)})
	require.Error(t, err)

	err = repo.Save(context.Background(), &models.CashBalances{})
	require.Error(t, err)
}
