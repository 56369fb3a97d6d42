// Package domain contains the tenant root entities: shops, branches and users.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Shop is the tenant and billable unit. It owns branches and holds exactly one
// active subscription at a time.
type Shop struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex:ux_shops_slug"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Shop) TableName() string { return "shops" }

// Branch is a physical or logical sub-location of a shop.
type Branch struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ShopID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_branches_shop_slug"`
	Name      string       `gorm:"type:text;not null"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex:ux_branches_shop_slug"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Branch) TableName() string { return "branches" }

// User is a platform user belonging to one home branch. Branch reach beyond
// the home branch comes from role assignments.
type User struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	ShopID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_users_shop_email"`
	BranchID    snowflake.ID `gorm:"not null;index"`
	Email       string       `gorm:"type:text;not null;uniqueIndex:ux_users_shop_email"`
	DisplayName string       `gorm:"type:text;not null"`
	CreatedAt   time.Time    `gorm:"not null"`
	UpdatedAt   time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

type CreateShopRequest struct {
	Name string `json:"name"`
}

type CreateBranchRequest struct {
	Name string `json:"name"`
}

type Service interface {
	CreateShop(ctx context.Context, req CreateShopRequest) (Shop, error)
	CreateBranch(ctx context.Context, req CreateBranchRequest) (Branch, error)
	GetShop(ctx context.Context) (Shop, error)
	CountBranches(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
}

var (
	ErrInvalidShop   = errors.New("invalid_shop")
	ErrInvalidName   = errors.New("invalid_name")
	ErrDuplicateSlug = errors.New("duplicate_slug")
	ErrShopNotFound  = errors.New("shop_not_found")
)
