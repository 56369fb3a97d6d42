// Package domain contains persistence models for branch-scoped roles and
// user assignments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is a named permission set. BranchID nil means the role is global and
// applies across every branch of the shop; that is how superuser-style roles
// bypass branch partitioning. Name is unique within its scope: the global
// namespace and each branch namespace are independent.
type Role struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	ShopID    snowflake.ID  `gorm:"not null;index"`
	BranchID  *snowflake.ID `gorm:"index"`
	Name      string        `gorm:"type:text;not null"`
	IsSystem  bool          `gorm:"not null;default:false"`
	SeedKey   *string       `gorm:"type:text"`
	Version   int64         `gorm:"not null;default:0"`
	CreatedAt time.Time     `gorm:"not null"`
	UpdatedAt time.Time     `gorm:"not null"`
}

// TableName sets the database table name.
func (Role) TableName() string { return "roles" }

// RolePermission is one permission membership row.
type RolePermission struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	ShopID       snowflake.ID `gorm:"not null;index"`
	RoleID       snowflake.ID `gorm:"not null;index;uniqueIndex:ux_role_permissions"`
	PermissionID snowflake.ID `gorm:"not null;uniqueIndex:ux_role_permissions"`
	CreatedAt    time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (RolePermission) TableName() string { return "role_permissions" }

// UserRole assigns a role to a user. A user may hold roles across branches.
type UserRole struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ShopID    snowflake.ID `gorm:"not null;index"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_user_roles"`
	RoleID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_user_roles"`
	CreatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (UserRole) TableName() string { return "user_roles" }

// RoleGrant is the flattened view of one held role: its scope plus the
// permission identifiers it carries. The access resolver works on these.
type RoleGrant struct {
	RoleID      snowflake.ID
	BranchID    *snowflake.ID
	Permissions []string
}
