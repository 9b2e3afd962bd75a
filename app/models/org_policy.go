package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

const PolicyTypeContentFilter = "content_filter"

// OrgPolicy is an account-scoped content rule checked during auto-approval.
type OrgPolicy struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	AccountID       string         `gorm:"type:varchar(64);index" json:"account_id"`
	PolicyType      string         `gorm:"type:varchar(32)" json:"policy_type"`
	Enabled         bool           `gorm:"default:true" json:"enabled"`
	ProhibitedWords string         `gorm:"type:text" json:"-"` // JSON array of words
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProhibitedWordList decodes the stored JSON word list. A malformed list is
// returned as empty together with the decode error so callers can fail closed.
func (p *OrgPolicy) ProhibitedWordList() ([]string, error) {
	if strings.TrimSpace(p.ProhibitedWords) == "" {
		return nil, nil
	}
	var words []string
	if err := json.Unmarshal([]byte(p.ProhibitedWords), &words); err != nil {
		return nil, err
	}
	return words, nil
}

// SetProhibitedWordList encodes and stores the word list.
func (p *OrgPolicy) SetProhibitedWordList(words []string) error {
	b, err := json.Marshal(words)
	if err != nil {
		return err
	}
	p.ProhibitedWords = string(b)
	return nil
}
