package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietmaple/microfolio/internal/db"
	"github.com/quietmaple/microfolio/internal/models"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.ConnectSQLite("file::memory:?cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate())
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testSnapshot(fundID string, date time.Time, tickers ...string) *models.PortfolioSnapshot {
	snap := &models.PortfolioSnapshot{
		FundID:  fundID,
		Date:    date,
		CashCAD: decimal.Zero,
		CashUSD: decimal.Zero,
	}
	for _, ticker := range tickers {
		snap.Positions = append(snap.Positions, models.Position{
			Ticker:   ticker,
			Shares:   decimal.NewFromInt(10),
			AvgPrice: decimal.RequireFromString("5.00"),
		})
	}
	return snap
}

func TestSnapshotRepository_SaveAndGet(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))
	ctx := context.Background()

	// The recording time of day must not matter.
	recorded := time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, testSnapshot("chimera", recorded, "ABEO", "SHOP.TO")))

	got, err := repo.GetByDate(ctx, "chimera", day(2025, 6, 2))
	require.NoError(t, err)
	assert.Equal(t, day(2025, 6, 2), got.Date.UTC())
	require.Len(t, got.Positions, 2)
	assert.NotEmpty(t, got.ID)
	assert.NotEmpty(t, got.Positions[0].ID)
	assert.Equal(t, got.ID, got.Positions[0].SnapshotID)
}

func TestSnapshotRepository_SaveReplacesSameDay(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testSnapshot("chimera", day(2025, 6, 2), "ABEO")))
	require.NoError(t, repo.Save(ctx, testSnapshot("chimera", day(2025, 6, 2), "ABEO", "CADL")))

	got, err := repo.GetByDate(ctx, "chimera", day(2025, 6, 2))
	require.NoError(t, err)
	assert.Len(t, got.Positions, 2)

	// The first snapshot and its positions are gone, not orphaned.
	snaps, err := repo.ListByFund(ctx, "chimera")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Len(t, snaps[0].Positions, 2)
}

func TestSnapshotRepository_ListByFundChronological(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testSnapshot("chimera", day(2025, 6, 4), "ABEO")))
	require.NoError(t, repo.Save(ctx, testSnapshot("chimera", day(2025, 6, 2), "ABEO")))
	require.NoError(t, repo.Save(ctx, testSnapshot("chimera", day(2025, 6, 3), "ABEO")))
	require.NoError(t, repo.Save(ctx, testSnapshot("other", day(2025, 6, 1), "ABEO")))

	snaps, err := repo.ListByFund(ctx, "chimera")
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, day(2025, 6, 2), snaps[0].Date.UTC())
	assert.Equal(t, day(2025, 6, 3), snaps[1].Date.UTC())
	assert.Equal(t, day(2025, 6, 4), snaps[2].Date.UTC())
}

func TestSnapshotRepository_LatestBefore(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testSnapshot("chimera", day(2025, 6, 2), "ABEO")))
	require.NoError(t, repo.Save(ctx, testSnapshot("chimera", day(2025, 6, 5), "ABEO")))

	got, err := repo.LatestBefore(ctx, "chimera", day(2025, 6, 5))
	require.NoError(t, err)
	require.NotNil(t, got, "the day itself is excluded, the prior snapshot matches")
	assert.Equal(t, day(2025, 6, 2), got.Date.UTC())

	got, err = repo.LatestBefore(ctx, "chimera", day(2025, 6, 2))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotRepository_GetByDateMissing(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))

	_, err := repo.GetByDate(context.Background(), "chimera", day(2025, 6, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSnapshotRepository_Delete(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testSnapshot("chimera", day(2025, 6, 2), "ABEO")))
	require.NoError(t, repo.Delete(ctx, "chimera", day(2025, 6, 2)))

	_, err := repo.GetByDate(ctx, "chimera", day(2025, 6, 2))
	require.Error(t, err)

	// Deleting a day with no snapshot is a no-op.
	require.NoError(t, repo.Delete(ctx, "chimera", day(2025, 6, 2)))
}

func TestSnapshotRepository_SaveValidation(t *testing.T) {
	repo := NewSnapshotRepository(newTestDB(t))

	snap := testSnapshot("chimera", day(2025, 6, 2), "ABEO")
	snap.Positions[0].Shares = decimal.NewFromInt(-1)

	err := repo.Save(context.Background(), snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
