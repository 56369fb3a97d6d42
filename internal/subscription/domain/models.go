// Package domain contains the subscription aggregate and its state machine.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type State string

const (
	StateTrialing  State = "trialing"
	StateActive    State = "active"
	StatePastDue   State = "past_due"
	StateSuspended State = "suspended"
	StateCancelled State = "cancelled"
)

// Subscription is one shop's plan membership. State is a cache of replaying
// the ledger against the period timestamps; it is only ever written through
// Apply and never hand-edited.
type Subscription struct {
	ID                 snowflake.ID `gorm:"primaryKey"`
	ShopID             snowflake.ID `gorm:"not null;uniqueIndex:ux_subscriptions_shop"`
	PlanID             snowflake.ID `gorm:"not null;index"`
	State              State        `gorm:"type:text;not null;index"`
	TrialEnd           *time.Time
	CurrentPeriodStart time.Time `gorm:"not null"`
	CurrentPeriodEnd   time.Time `gorm:"not null;index"`
	// GraceUntil is set on entering past_due: the deadline for a late payment
	// before suspension.
	GraceUntil  *time.Time `gorm:"index"`
	CancelledAt *time.Time
	Version     int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
