// Package domain contains the permission catalog model.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Permission is one entry of the static catalog. Entries are immutable once
// seeded; removal happens only through deliberate administrative migration.
type Permission struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Identifier  string       `gorm:"type:text;not null;uniqueIndex:ux_permissions_identifier"`
	Module      string       `gorm:"type:text;not null;index"`
	Action      string       `gorm:"type:text;not null"`
	Description string       `gorm:"type:text"`
	CreatedAt   time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (Permission) TableName() string { return "permissions" }

// Registry is the read surface of the permission catalog.
type Registry interface {
	// Seed inserts catalog entries that are missing and leaves existing rows
	// untouched. Safe to run on every boot.
	Seed(ctx context.Context) error
	Lookup(ctx context.Context, identifier string) (Permission, error)
	Catalog(ctx context.Context) ([]Permission, error)
}

var (
	ErrPermissionNotFound = errors.New("permission_not_found")
	ErrInvalidIdentifier  = errors.New("invalid_identifier")
)
