// Package domain contains the subscription plan catalog model.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalAnnual  Interval = "annual"
)

const (
	LimitMaxBranches = "max_branches"
	LimitMaxUsers    = "max_users"
)

// Plan is one sellable tier. PriceAmount is in the currency's minor unit.
// Limits holds named numeric quotas; a missing key means unlimited.
type Plan struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	Code        string            `gorm:"type:text;not null;uniqueIndex:ux_plans_code"`
	Name        string            `gorm:"type:text;not null"`
	PriceAmount int64             `gorm:"not null"`
	Currency    string            `gorm:"type:text;not null"`
	Interval    Interval          `gorm:"type:text;not null"`
	TrialDays   int               `gorm:"not null;default:0"`
	Limits      datatypes.JSONMap `gorm:"type:jsonb"`
	Active      bool              `gorm:"not null;default:true"`
	CreatedAt   time.Time         `gorm:"not null"`
	UpdatedAt   time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// Limit returns the named quota. ok is false when the plan does not cap it.
func (p Plan) Limit(name string) (int64, bool) {
	raw, exists := p.Limits[name]
	if !exists {
		return 0, false
	}
	switch v := raw.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// PeriodEnd returns the end of a billing period starting at the given time.
func (p Plan) PeriodEnd(start time.Time) time.Time {
	if p.Interval == IntervalAnnual {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

type Service interface {
	ListActive(ctx context.Context) ([]Plan, error)
	Get(ctx context.Context, planID snowflake.ID) (*Plan, error)
	GetByCode(ctx context.Context, code string) (*Plan, error)
}

var (
	ErrPlanNotFound = errors.New("plan_not_found")
	ErrInvalidPlan  = errors.New("invalid_plan")
)
