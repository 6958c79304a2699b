package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quietmaple/microfolio/internal/db"
	"github.com/quietmaple/microfolio/internal/models"
)

type snapshotRepository struct {
	db *db.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(database *db.DB) SnapshotRepository {
	return &snapshotRepository{db: database}
}

func (r *snapshotRepository) Save(ctx context.Context, snapshot *models.PortfolioSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is required")
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	snapshot.NormalizeDate()
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	for i := range snapshot.Positions {
		if snapshot.Positions[i].ID == "" {
			snapshot.Positions[i].ID = uuid.NewString()
		}
		snapshot.Positions[i].SnapshotID = snapshot.ID
	}

	// Replace any snapshot already recorded for the same fund and day.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PortfolioSnapshot
		err := tx.Where("fund_id = ? AND date = ?", snapshot.FundID, snapshot.Date).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Where("snapshot_id = ?", existing.ID).Delete(&models.Position{}).Error; err != nil {
				return fmt.Errorf("failed to clear positions: %w", err)
			}
			if err := tx.Delete(&models.PortfolioSnapshot{}, "id = ?", existing.ID).Error; err != nil {
				return fmt.Errorf("failed to clear snapshot: %w", err)
			}
		case err != gorm.ErrRecordNotFound:
			return fmt.Errorf("failed to check existing snapshot: %w", err)
		}

		if err := tx.Omit("Positions").Create(snapshot).Error; err != nil {
			return fmt.Errorf("failed to create snapshot: %w", err)
		}
		for i := range snapshot.Positions {
			if err := tx.Create(&snapshot.Positions[i]).Error; err != nil {
				return fmt.Errorf("failed to create position: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

func (r *snapshotRepository) GetByDate(ctx context.Context, fundID string, date time.Time) (*models.PortfolioSnapshot, error) {
	if fundID == "" {
		return nil, fmt.Errorf("fund ID is required")
	}

	day := models.DateOnly(date)
	var snapshot models.PortfolioSnapshot
	err := r.db.WithContext(ctx).Preload("Positions").
		Where("fund_id = ? AND date = ?", fundID, day).
		First(&snapshot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("snapshot not found for %s on %s", fundID, day.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return &snapshot, nil
}

func (r *snapshotRepository) ListByFund(ctx context.Context, fundID string) ([]models.PortfolioSnapshot, error) {
	if fundID == "" {
		return nil, fmt.Errorf("fund ID is required")
	}

	var snapshots []models.PortfolioSnapshot
	err := r.db.WithContext(ctx).Preload("Positions").
		Where("fund_id = ?", fundID).
		Order("date ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	return snapshots, nil
}

func (r *snapshotRepository) LatestBefore(ctx context.Context, fundID string, date time.Time) (*models.PortfolioSnapshot, error) {
	if fundID == "" {
		return nil, fmt.Errorf("fund ID is required")
	}

	day := models.DateOnly(date)
	var snapshot models.PortfolioSnapshot
	err := r.db.WithContext(ctx).Preload("Positions").
		Where("fund_id = ? AND date < ?", fundID, day).
		Order("date DESC").
		First(&snapshot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return &snapshot, nil
}

func (r *snapshotRepository) Delete(ctx context.Context, fundID string, date time.Time) error {
	if fundID == "" {
		return fmt.Errorf("fund ID is required")
	}

	day := models.DateOnly(date)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PortfolioSnapshot
		err := tx.Where("fund_id = ? AND date = ?", fundID, day).First(&existing).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if err := tx.Where("snapshot_id = ?", existing.ID).Delete(&models.Position{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PortfolioSnapshot{}, "id = ?", existing.ID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	return nil
}

var _ SnapshotRepository = (*snapshotRepository)(nil)
