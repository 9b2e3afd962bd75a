package models

import (
	"time"
)

const ResetTypeTierUpgrade = "tier_upgrade"

// UsageReset marks the instant usage counters were reset for an account.
// The newest marker wins over the billing period start when computing the
// effective cycle start, so upgrades take effect immediately.
type UsageReset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID string    `gorm:"type:varchar(64);index" json:"account_id"`
	ResetType string    `gorm:"type:varchar(32)" json:"reset_type"`
	Reason    string    `gorm:"type:varchar(255)" json:"reason"`
	ResetAt   time.Time `gorm:"index" json:"reset_at"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingPlanChange is a scheduled downgrade; it never resets usage and only
// takes effect at the next cycle start.
type PendingPlanChange struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AccountID     string    `gorm:"type:varchar(64);index:idx_pending_change_account_date,unique" json:"account_id"`
	CurrentPlan   string    `gorm:"type:varchar(50)" json:"current_plan"`
	NewPlan       string    `gorm:"type:varchar(50)" json:"new_plan"`
	ChangeType    string    `gorm:"type:varchar(32)" json:"change_type"`
	EffectiveDate time.Time `gorm:"index:idx_pending_change_account_date,unique" json:"effective_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
