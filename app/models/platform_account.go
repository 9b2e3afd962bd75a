package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PlatformAccountActive   = "active"
	PlatformAccountDisabled = "disabled"
)

// PlatformAccount is a linked social platform handle for an account.
type PlatformAccount struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AccountID string         `gorm:"type:varchar(64);index" json:"account_id"`
	Platform  string         `gorm:"type:varchar(32);index" json:"platform"`
	Handle    string         `gorm:"type:varchar(255)" json:"handle"`
	Status    string         `gorm:"type:varchar(16);default:'active'" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
