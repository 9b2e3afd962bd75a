package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/replygate/ReplyGate/app/models"
)

type policyRepository struct {
	db *gorm.DB
}

// NewPolicyRepository creates a policy repository backed by GORM.
func NewPolicyRepository(db *gorm.DB) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) ListByAccount(ctx context.Context, accountID string) ([]models.OrgPolicy, error) {
	var policies []models.OrgPolicy
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Find(&policies).Error
	if err != nil {
		return nil, err
	}
	return policies, nil
}
