package models

import (
	"time"
)

const (
	ActivityAnalysis          = "analysis"
	ActivityResponseGenerated = "response_generated"
)

// ActivityEvent records one usage-affecting action. Usage counters are derived
// from these events, never stored as running totals.
type ActivityEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID string    `gorm:"type:varchar(64);index:idx_activity_account_kind" json:"account_id"`
	Kind      string    `gorm:"type:varchar(32);index:idx_activity_account_kind" json:"kind"`
	Quantity  int       `gorm:"default:1" json:"quantity"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
