package models

import (
	"time"
)

// ScanStatus represents the lifecycle state of a scan pass
type ScanStatus string

const (
	ScanStatusRunning  ScanStatus = "running"
	ScanStatusComplete ScanStatus = "complete"
	ScanStatusFailed   ScanStatus = "failed"
)

// Scan represents one batch classification pass over the inbox
type Scan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Status     string     `gorm:"size:20;index" json:"status"`
	Total      int        `gorm:"default:0" json:"total"`
	SpamCount  int        `gorm:"default:0" json:"spam_count"`
	DryRun     bool       `gorm:"default:true" json:"dry_run"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	// Relations
	Results []EmailResult `gorm:"foreignKey:ScanID" json:"results,omitempty"`
}

// EmailResult stores the verdict for one message within a scan
type EmailResult struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ScanID           uint      `gorm:"index;not null" json:"scan_id"`
	OrderIndex       int       `gorm:"index" json:"order_index"`
	MessageID        string    `gorm:"size:255;index;not null" json:"message_id"`
	Subject          string    `gorm:"size:500" json:"subject"`
	Sender           string    `gorm:"size:255" json:"sender"`
	BodyPreview      string    `gorm:"size:500" json:"body_preview"`
	IsSpam           bool      `gorm:"default:false" json:"is_spam"`
	Reason           string    `gorm:"type:text" json:"reason"`
	UnsubscribeLinks string    `gorm:"type:text" json:"unsubscribe_links"` // JSON array stored as string
	Archived         bool      `gorm:"default:false" json:"archived"`
	UnsubscribeCount int       `gorm:"default:0" json:"unsubscribe_count"`
	CreatedAt        time.Time `json:"created_at"`
}
