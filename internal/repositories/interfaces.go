package repositories

import (
	"context"
	"time"

	"github.com/quietmaple/microfolio/internal/models"
)

// SnapshotRepository defines the interface for portfolio snapshot storage
type SnapshotRepository interface {
	// Save persists a snapshot, replacing any snapshot already recorded
	// for the same fund and day.
	Save(ctx context.Context, snapshot *models.PortfolioSnapshot) error
	GetByDate(ctx context.Context, fundID string, date time.Time) (*models.PortfolioSnapshot, error)
	// ListByFund returns the fund's snapshots in chronological order.
	ListByFund(ctx context.Context, fundID string) ([]models.PortfolioSnapshot, error)
	// LatestBefore returns the most recent snapshot strictly before date,
	// or nil when none exists.
	LatestBefore(ctx context.Context, fundID string, date time.Time) (*models.PortfolioSnapshot, error)
	Delete(ctx context.Context, fundID string, date time.Time) error
}

// CashRepository defines the interface for cash balance storage
type CashRepository interface {
	// Get returns the fund's balances, or fresh zero balances when the
	// fund has none recorded yet.
	Get(ctx context.Context, fundID string) (*models.CashBalances, error)
	Save(ctx context.Context, balances *models.CashBalances) error
}

// RateRepository defines the interface for exchange-rate history storage
type RateRepository interface {
	// SaveRate records a rate for its pair and day. A second rate for the
	// same pair and day overwrites the first.
	SaveRate(ctx context.Context, rate *models.FXRate) error
	// LoadTable returns the stored history for a pair as an as-of lookup
	// table. An unknown pair yields an empty table, not an error.
	LoadTable(ctx context.Context, from, to string) (*models.RateTable, error)
	LatestRate(ctx context.Context, from, to string) (*models.FXRate, error)
}

// ContributionRepository defines the interface for contributor capital flows
type ContributionRepository interface {
	Add(ctx context.Context, contribution *models.Contribution) error
	// ListByFund returns the fund's contribution history in chronological
	// order.
	ListByFund(ctx context.Context, fundID string) ([]models.Contribution, error)
}
