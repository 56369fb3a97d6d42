package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/veloretail/velo/internal/audit/domain"
	auditservice "github.com/veloretail/velo/internal/audit/service"
	"github.com/veloretail/velo/internal/clock"
	"github.com/veloretail/velo/internal/permission"
	permissiondomain "github.com/veloretail/velo/internal/permission/domain"
	roledomain "github.com/veloretail/velo/internal/role/domain"
	"github.com/veloretail/velo/internal/shopcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   roledomain.Service
	node  *snowflake.Node
	clock *clock.FakeClock
	shop  snowflake.ID
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&permissiondomain.Permission{},
		&roledomain.Role{},
		&roledomain.RolePermission{},
		&roledomain.UserRole{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	registry := permission.NewRegistry(permission.RegistryParam{
		DB: db, Log: logger, GenID: node, Clock: fake,
	})
	require.NoError(t, registry.Seed(context.Background()))

	auditSvc := auditservice.NewService(auditservice.ServiceParam{
		DB: db, Log: logger, Clock: fake,
	})

	svc := NewService(ServiceParam{
		DB:          db,
		Log:         logger,
		GenID:       node,
		Clock:       fake,
		Permissions: registry,
		Audit:       auditSvc,
	})

	shop := node.Generate()
	return &fixture{
		db:    db,
		svc:   svc,
		node:  node,
		clock: fake,
		shop:  shop,
		ctx:   shopcontext.WithShopID(context.Background(), int64(shop)),
	}
}

func (f *fixture) systemRole(t *testing.T, key string) *roledomain.Role {
	t.Helper()
	role := roledomain.Role{
		ID: f.node.Generate(), ShopID: f.shop, Name: key,
		IsSystem: true, SeedKey: &key,
		CreatedAt: f.clock.Now(), UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&role).Error)
	return &role
}

func TestCreateRole_ScopedNamespaces(t *testing.T) {
	f := newFixture(t)

	global, err := f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{Name: "Shift Lead"})
	require.NoError(t, err)
	assert.Nil(t, global.BranchID)

	// Same name again in the global namespace collides.
	_, err = f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{Name: "Shift Lead"})
	assert.ErrorIs(t, err, roledomain.ErrDuplicateName)

	// The same name inside a branch namespace is fine, and two different
	// branches do not collide either.
	branchA, branchB := f.node.Generate(), f.node.Generate()
	_, err = f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{Name: "Shift Lead", BranchID: &branchA})
	require.NoError(t, err)
	_, err = f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{Name: "Shift Lead", BranchID: &branchB})
	require.NoError(t, err)
	_, err = f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{Name: "Shift Lead", BranchID: &branchA})
	assert.ErrorIs(t, err, roledomain.ErrDuplicateName)
}

func TestCreateRole_WithInitialPermissions(t *testing.T) {
	f := newFixture(t)

	role, err := f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{
		Name:        "Supervisor",
		Permissions: []string{"pos.sale.create", "report.sales.view", "pos.sale.create"},
	})
	require.NoError(t, err)

	perms, err := f.svc.ListPermissions(f.ctx, role.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pos.sale.create", "report.sales.view"}, perms)

	// An unknown identifier rejects the whole request before anything is written.
	_, err = f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{
		Name:        "Broken",
		Permissions: []string{"no.such.permission"},
	})
	assert.ErrorIs(t, err, permissiondomain.ErrPermissionNotFound)

	var count int64
	require.NoError(t, f.db.Model(&roledomain.Role{}).
		Where("name = ?", "Broken").Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAssignPermission_IdempotentAndVersioned(t *testing.T) {
	f := newFixture(t)

	role, err := f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{Name: "Cashier Plus"})
	require.NoError(t, err)

	require.NoError(t, f.svc.AssignPermission(f.ctx, role.ID, "pos.sale.create", nil))
	require.NoError(t, f.svc.AssignPermission(f.ctx, role.ID, "pos.sale.create", nil))

	perms, err := f.svc.ListPermissions(f.ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"pos.sale.create"}, perms)

	// Only the effective assignment advanced the version.
	after, err := f.svc.GetRole(f.ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, role.Version+1, after.Version)

	err = f.svc.AssignPermission(f.ctx, role.ID, "does.not.exist", nil)
	assert.ErrorIs(t, err, permissiondomain.ErrPermissionNotFound)
}

func TestRevokePermission_ProtectedOnSystemRole(t *testing.T) {
	f := newFixture(t)
	owner := f.systemRole(t, roledomain.SeedKeyOwner)

	require.NoError(t, f.svc.AssignPermission(f.ctx, owner.ID, "pos.sale.create", nil))
	err := f.svc.RevokePermission(f.ctx, owner.ID, "pos.sale.create", nil)
	assert.ErrorIs(t, err, roledomain.ErrProtectedPermission)

	// A custom role can revoke freely, and revoking twice is a no-op.
	custom, err := f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{Name: "Helper"})
	require.NoError(t, err)
	require.NoError(t, f.svc.AssignPermission(f.ctx, custom.ID, "pos.sale.create", nil))
	require.NoError(t, f.svc.RevokePermission(f.ctx, custom.ID, "pos.sale.create", nil))
	require.NoError(t, f.svc.RevokePermission(f.ctx, custom.ID, "pos.sale.create", nil))

	perms, err := f.svc.ListPermissions(f.ctx, custom.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestDeleteRole_Guards(t *testing.T) {
	f := newFixture(t)

	owner := f.systemRole(t, roledomain.SeedKeyOwner)
	err := f.svc.DeleteRole(f.ctx, owner.ID, nil)
	assert.ErrorIs(t, err, roledomain.ErrSystemRoleProtected)

	role, err := f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{Name: "Temp"})
	require.NoError(t, err)

	user := f.node.Generate()
	require.NoError(t, f.svc.AssignRole(f.ctx, user, role.ID, nil))
	err = f.svc.DeleteRole(f.ctx, role.ID, nil)
	assert.ErrorIs(t, err, roledomain.ErrRoleInUse)

	require.NoError(t, f.svc.UnassignRole(f.ctx, user, role.ID, nil))
	require.NoError(t, f.svc.DeleteRole(f.ctx, role.ID, nil))

	_, err = f.svc.GetRole(f.ctx, role.ID)
	assert.ErrorIs(t, err, roledomain.ErrRoleNotFound)
}

func TestAssignRole_IdempotentAndUnassign(t *testing.T) {
	f := newFixture(t)

	role, err := f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{Name: "Floor"})
	require.NoError(t, err)
	user := f.node.Generate()

	require.NoError(t, f.svc.AssignRole(f.ctx, user, role.ID, nil))
	require.NoError(t, f.svc.AssignRole(f.ctx, user, role.ID, nil))

	var count int64
	require.NoError(t, f.db.Model(&roledomain.UserRole{}).
		Where("user_id = ? AND role_id = ?", user, role.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, f.svc.UnassignRole(f.ctx, user, role.ID, nil))
	err = f.svc.UnassignRole(f.ctx, user, role.ID, nil)
	assert.ErrorIs(t, err, roledomain.ErrAssignmentNotFound)
}

func TestGrantsForUser(t *testing.T) {
	f := newFixture(t)

	branch := f.node.Generate()
	global, err := f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{Name: "Auditor"})
	require.NoError(t, err)
	scoped, err := f.svc.CreateRole(f.ctx, roledomain.CreateRoleRequest{Name: "Register", BranchID: &branch})
	require.NoError(t, err)

	require.NoError(t, f.svc.AssignPermission(f.ctx, global.ID, "report.sales.view", nil))
	require.NoError(t, f.svc.AssignPermission(f.ctx, scoped.ID, "pos.sale.create", nil))

	user := f.node.Generate()
	require.NoError(t, f.svc.AssignRole(f.ctx, user, global.ID, nil))
	require.NoError(t, f.svc.AssignRole(f.ctx, user, scoped.ID, nil))

	grants, err := f.svc.GrantsForUser(f.ctx, user)
	require.NoError(t, err)
	require.Len(t, grants, 2)

	byRole := map[snowflake.ID]roledomain.RoleGrant{}
	for _, g := range grants {
		byRole[g.RoleID] = g
	}
	assert.Nil(t, byRole[global.ID].BranchID)
	assert.Equal(t, []string{"report.sales.view"}, byRole[global.ID].Permissions)
	require.NotNil(t, byRole[scoped.ID].BranchID)
	assert.Equal(t, branch, *byRole[scoped.ID].BranchID)

	// Audit trail exists for the mutations above.
	var audits int64
	require.NoError(t, f.db.Model(&auditdomain.AuditLog{}).Count(&audits).Error)
	assert.Greater(t, audits, int64(0))
}
