// Package domain contains the user-facing notification model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Severity classifies a notification for display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a user-visible event surfaced by the core. UserID nil means
// the notification is addressed to the shop's administrative users as a group;
// the delivery layer fans it out.
type Notification struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	ShopID    snowflake.ID  `gorm:"not null;index"`
	UserID    *snowflake.ID `gorm:"index"`
	Title     string        `gorm:"type:text;not null"`
	Message   string        `gorm:"type:text;not null"`
	Severity  Severity      `gorm:"type:text;not null"`
	DedupKey  string        `gorm:"type:text;not null;uniqueIndex:ux_notifications_dedup"`
	Read      bool          `gorm:"not null;default:false"`
	ReadAt    *time.Time    `gorm:""`
	CreatedAt time.Time     `gorm:"not null"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }
