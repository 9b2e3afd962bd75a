package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/replygate/ReplyGate/app/models"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository backed by GORM.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetByAccountID(ctx context.Context, accountID string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Where("account_id = ?", strings.TrimSpace(accountID)).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetOrCreateSettings(ctx context.Context, accountID string) (*models.AccountSettings, error) {
	return models.GetOrCreateAccountSettings(r.db.WithContext(ctx), accountID)
}
