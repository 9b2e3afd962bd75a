package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	AccountStatusActive   = "active"
	AccountStatusTrialing = "trialing"
	AccountStatusPastDue  = "past_due"
	AccountStatusCanceled = "canceled"
)

// Account is the local projection of a billed account: plan tier, subscription
// status and the current billing period. Owned by the billing subsystem; this
// core only reads it.
type Account struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	AccountID          string         `gorm:"type:varchar(64);uniqueIndex" json:"account_id"`
	Plan               string         `gorm:"type:varchar(50);default:'free'" json:"plan"`
	Status             string         `gorm:"type:varchar(32);default:'active'" json:"status"`
	CurrentPeriodStart *time.Time     `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time     `json:"current_period_end"`
	UpgradedAt         *time.Time     `json:"upgraded_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsActive reports whether the subscription status still entitles the account.
func (a *Account) IsActive() bool {
	switch a.Status {
	case AccountStatusActive, AccountStatusTrialing:
		return true
	default:
		return false
	}
}
