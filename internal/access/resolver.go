package access

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	roledomain "github.com/veloretail/velo/internal/role/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("access.resolver",
	fx.Provide(NewResolver),
)

var ErrPermissionDenied = errors.New("permission_denied")

// Resolver answers authorization questions. Permission checks are read only
// and never mutate role state.
type Resolver interface {
	// EffectivePermissions returns the sorted union of permissions the user
	// holds in the given branch context.
	EffectivePermissions(ctx context.Context, userID snowflake.ID, branchID *snowflake.ID) ([]string, error)
	// Authorize returns nil when the user holds the permission in the branch
	// context and ErrPermissionDenied when they do not.
	Authorize(ctx context.Context, userID snowflake.ID, branchID *snowflake.ID, permission string) error
}

type resolver struct {
	roles roledomain.Service
	log   *zap.Logger
}

type ResolverParam struct {
	fx.In

	Roles roledomain.Service
	Log   *zap.Logger
}

func NewResolver(p ResolverParam) Resolver {
	return &resolver{
		roles: p.Roles,
		log:   p.Log.Named("access.resolver"),
	}
}

func (r *resolver) EffectivePermissions(ctx context.Context, userID snowflake.ID, branchID *snowflake.ID) ([]string, error) {
	grants, err := r.roles.GrantsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Resolve(grants, branchID), nil
}

func (r *resolver) Authorize(ctx context.Context, userID snowflake.ID, branchID *snowflake.ID, permission string) error {
	grants, err := r.roles.GrantsForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if !applies(g.BranchID, branchID) {
			continue
		}
		for _, p := range g.Permissions {
			if p == permission {
				return nil
			}
		}
	}
	return ErrPermissionDenied
}
