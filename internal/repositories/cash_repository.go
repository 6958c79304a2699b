package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/quietmaple/microfolio/internal/db"
	"github.com/quietmaple/microfolio/internal/models"
)

type cashRepository struct {
	db *db.DB
}

// NewCashRepository creates a new cash balance repository
func NewCashRepository(database *db.DB) CashRepository {
	return &cashRepository{db: database}
}

func (r *cashRepository) Get(ctx context.Context, fundID string) (*models.CashBalances, error) {
	if fundID == "" {
		return nil, fmt.Errorf("fund ID is required")
	}

	var balances models.CashBalances
	err := r.db.WithContext(ctx).First(&balances, "fund_id = ?", fundID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.NewCashBalances(fundID), nil
		}
		return nil, fmt.Errorf("failed to get cash balances: %w", err)
	}

	return &balances, nil
}

func (r *cashRepository) Save(ctx context.Context, balances *models.CashBalances) error {
	if balances == nil || balances.FundID == "" {
		return fmt.Errorf("fund ID is required")
	}
	if balances.CAD.IsNegative() || balances.USD.IsNegative() {
		return fmt.Errorf("validation failed: balances must be non-negative")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CashBalances
		err := tx.First(&existing, "fund_id = ?", balances.FundID).Error
		if err == gorm.ErrRecordNotFound {
			return tx.Create(balances).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&models.CashBalances{FundID: balances.FundID}).
			Updates(map[string]interface{}{"cad": balances.CAD, "usd": balances.USD}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save cash balances: %w", err)
	}

	return nil
}

var _ CashRepository = (*cashRepository)(nil)
