package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quietmaple/microfolio/internal/db"
	"github.com/quietmaple/microfolio/internal/models"
)

type contributionRepository struct {
	db *db.DB
}

// NewContributionRepository creates a new contribution repository
func NewContributionRepository(database *db.DB) ContributionRepository {
	return &contributionRepository{db: database}
}

func (r *contributionRepository) Add(ctx context.Context, contribution *models.Contribution) error {
	if contribution == nil {
		return fmt.Errorf("contribution is required")
	}
	if err := contribution.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if contribution.ID == "" {
		contribution.ID = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(contribution).Error; err != nil {
		return fmt.Errorf("failed to create contribution: %w", err)
	}

	return nil
}

func (r *contributionRepository) ListByFund(ctx context.Context, fundID string) ([]models.Contribution, error) {
	if fundID == "" {
		return nil, fmt.Errorf("fund ID is required")
	}

	var contributions []models.Contribution
	err := r.db.WithContext(ctx).
		Where("fund_id = ?", fundID).
		Order("timestamp ASC").
		Find(&contributions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}

	return contributions, nil
}

var _ ContributionRepository = (*contributionRepository)(nil)
