package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replygate/ReplyGate/app/models"
)

type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a usage repository backed by GORM.
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) CountResponses(ctx context.Context, accountID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ActivityEvent{}).
		Where("account_id = ? AND kind = ? AND created_at >= ?", accountID, models.ActivityResponseGenerated, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *usageRepository) SumAnalyses(ctx context.Context, accountID string, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.ActivityEvent{}).
		Where("account_id = ? AND kind = ? AND created_at >= ?", accountID, models.ActivityAnalysis, since).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *usageRepository) ActivePlatformAccounts(ctx context.Context, accountID string) ([]models.PlatformAccount, error) {
	var accounts []models.PlatformAccount
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, models.PlatformAccountActive).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *usageRepository) RecordActivity(ctx context.Context, event *models.ActivityEvent) error {
	if event.Quantity <= 0 {
		event.Quantity = 1
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *usageRepository) LatestUsageReset(ctx context.Context, accountID string) (*models.UsageReset, error) {
	var reset models.UsageReset
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("reset_at DESC").
		First(&reset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reset, nil
}

func (r *usageRepository) CreateUsageReset(ctx context.Context, reset *models.UsageReset) error {
	return r.db.WithContext(ctx).Create(reset).Error
}

func (r *usageRepository) UpsertPendingPlanChange(ctx context.Context, change *models.PendingPlanChange) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "account_id"},
			{Name: "effective_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_plan",
			"new_plan",
			"change_type",
			"updated_at",
		}),
	}).Create(change).Error
}
