package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/replygate/ReplyGate/app/models"
)

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates an audit repository backed by GORM.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, audit *models.ApprovalAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

// Probe fetches a single row so the rate limiter can verify connectivity and
// response shape before trusting window counts.
func (r *auditRepository) Probe(ctx context.Context) ([]models.ApprovalAudit, error) {
	rows := make([]models.ApprovalAudit, 0, 1)
	err := r.db.WithContext(ctx).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *auditRepository) CountAutoApprovedSince(ctx context.Context, accountID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ApprovalAudit{}).
		Where("account_id = ? AND auto_approved = ? AND approved = ? AND created_at >= ?", accountID, true, true, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *auditRepository) ListSince(ctx context.Context, accountID string, since time.Time) ([]models.ApprovalAudit, error) {
	var rows []models.ApprovalAudit
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND created_at >= ?", accountID, since).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
