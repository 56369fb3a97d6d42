package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRoleRequest struct {
	Name        string
	BranchID    *snowflake.ID
	Permissions []string
	ActorID     *string
}

type ListRolesRequest struct {
	BranchID *snowflake.ID
	Limit    int
	Offset   int
}

// Service manages roles, their permission membership and user assignments.
// Every method resolves the shop from the request context, and every mutation
// records an audit event once the write commits.
type Service interface {
	CreateRole(ctx context.Context, req CreateRoleRequest) (*Role, error)
	GetRole(ctx context.Context, roleID snowflake.ID) (*Role, error)
	ListRoles(ctx context.Context, req ListRolesRequest) ([]Role, error)
	// DeleteRole removes a custom role and its permission rows. System roles
	// and roles still assigned to users are refused.
	DeleteRole(ctx context.Context, roleID snowflake.ID, actorID *string) error

	// AssignPermission adds a permission to a role. Assigning a permission the
	// role already holds is a no-op.
	AssignPermission(ctx context.Context, roleID snowflake.ID, identifier string, actorID *string) error
	// RevokePermission removes a permission from a role. Permissions seeded
	// into system roles cannot be revoked from them.
	RevokePermission(ctx context.Context, roleID snowflake.ID, identifier string, actorID *string) error
	ListPermissions(ctx context.Context, roleID snowflake.ID) ([]string, error)

	AssignRole(ctx context.Context, userID, roleID snowflake.ID, actorID *string) error
	UnassignRole(ctx context.Context, userID, roleID snowflake.ID, actorID *string) error
	// GrantsForUser returns one flattened grant per role the user holds.
	GrantsForUser(ctx context.Context, userID snowflake.ID) ([]RoleGrant, error)
}

var (
	ErrInvalidShop         = errors.New("invalid_shop")
	ErrRoleNotFound        = errors.New("role_not_found")
	ErrInvalidRoleName     = errors.New("invalid_role_name")
	ErrDuplicateName       = errors.New("duplicate_role_name")
	ErrSystemRoleProtected = errors.New("system_role_protected")
	ErrProtectedPermission = errors.New("protected_permission")
	ErrRoleInUse           = errors.New("role_in_use")
	ErrAssignmentNotFound  = errors.New("assignment_not_found")
	ErrConcurrencyConflict = errors.New("concurrency_conflict")
)
