package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quietmaple/microfolio/internal/db"
	"github.com/quietmaple/microfolio/internal/models"
)

type rateRepository struct {
	db *db.DB
}

// NewRateRepository creates a new exchange-rate repository
func NewRateRepository(database *db.DB) RateRepository {
	return &rateRepository{db: database}
}

func (r *rateRepository) SaveRate(ctx context.Context, rate *models.FXRate) error {
	if rate == nil {
		return fmt.Errorf("rate is required")
	}
	if err := rate.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	rate.Date = models.DateOnly(rate.Date)
	if rate.ID == "" {
		rate.ID = uuid.NewString()
	}

	// One rate per pair and day; a later save for the same day wins.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.FXRate
		err := tx.Where("from_currency = ? AND to_currency = ? AND date = ?",
			rate.FromCurrency, rate.ToCurrency, rate.Date).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			return tx.Create(rate).Error
		}
		if err != nil {
			return err
		}
		rate.ID = existing.ID
		return tx.Model(&models.FXRate{ID: existing.ID}).
			Updates(map[string]interface{}{"rate": rate.Rate, "source": rate.Source}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save rate: %w", err)
	}

	return nil
}

func (r *rateRepository) LoadTable(ctx context.Context, from, to string) (*models.RateTable, error) {
	if from == "" || to == "" {
		return nil, fmt.Errorf("currency pair is required")
	}

	var history []models.FXRate
	err := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ?", from, to).
		Order("date ASC").
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load rate history: %w", err)
	}

	return models.NewRateTable(from, to, history), nil
}

func (r *rateRepository) LatestRate(ctx context.Context, from, to string) (*models.FXRate, error) {
	if from == "" || to == "" {
		return nil, fmt.Errorf("currency pair is required")
	}

	var rate models.FXRate
	err := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ?", from, to).
		Order("date DESC").
		First(&rate).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest rate: %w", err)
	}

	return &rate, nil
}

var _ RateRepository = (*rateRepository)(nil)
