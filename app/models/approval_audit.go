package models

import (
	"time"
)

// ApprovalAudit is the GDPR-safe record of one pipeline run. It stores a
// content hash, never the text itself, and is insert-only.
type ApprovalAudit struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	AuditID             string    `gorm:"type:char(36);uniqueIndex" json:"audit_id"`
	AccountID           string    `gorm:"type:varchar(64);index:idx_audit_account_created" json:"account_id"`
	CommentID           string    `gorm:"type:varchar(64)" json:"comment_id"`
	VariantID           string    `gorm:"type:varchar(64)" json:"variant_id"`
	Platform            string    `gorm:"type:varchar(32)" json:"platform"`
	Approved            bool      `json:"approved"`
	AutoApproved        bool      `gorm:"index" json:"auto_approved"`
	Reason              string    `gorm:"type:varchar(64)" json:"reason"`
	ToxicityScore       float64   `json:"toxicity_score"`
	TransparencyApplied bool      `json:"transparency_applied"`
	ContentHash         string    `gorm:"type:char(64)" json:"content_hash"`
	CreatedAt           time.Time `gorm:"index:idx_audit_account_created" json:"created_at"`
}
