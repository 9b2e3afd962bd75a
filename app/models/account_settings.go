package models

import (
	"time"

	"gorm.io/gorm"
)

// AccountSettings stores per-account toggles for the approval pipeline.
type AccountSettings struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	AccountID           string         `gorm:"type:varchar(64);uniqueIndex" json:"account_id"`
	AutoApprovalEnabled bool           `gorm:"default:false" json:"auto_approval_enabled"`
	AutoPublishEnabled  bool           `gorm:"default:false" json:"auto_publish_enabled"`
	DefaultLanguage     string         `gorm:"type:varchar(8);default:'en'" json:"default_language"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

// GetOrCreateAccountSettings returns existing settings or creates defaults
func GetOrCreateAccountSettings(db *gorm.DB, accountID string) (*AccountSettings, error) {
	var s AccountSettings
	if err := db.Where("account_id = ?", accountID).First(&s).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			s = AccountSettings{AccountID: accountID, DefaultLanguage: "en"}
			if err := db.Create(&s).Error; err != nil {
				return nil, err
			}
			return &s, nil
		}
		return nil, err
	}
	return &s, nil
}
