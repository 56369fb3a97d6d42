package permission

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/veloretail/velo/internal/clock"
	permissiondomain "github.com/veloretail/velo/internal/permission/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newRegistry(t *testing.T) (*gorm.DB, permissiondomain.Registry) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&permissiondomain.Permission{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	registry := NewRegistry(RegistryParam{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fake,
	})
	return db, registry
}

func TestSeed_Idempotent(t *testing.T) {
	db, registry := newRegistry(t)

	require.NoError(t, registry.Seed(context.Background()))
	var first int64
	require.NoError(t, db.Model(&permissiondomain.Permission{}).Count(&first).Error)
	assert.Equal(t, int64(len(Catalog())), first)

	require.NoError(t, registry.Seed(context.Background()))
	var second int64
	require.NoError(t, db.Model(&permissiondomain.Permission{}).Count(&second).Error)
	assert.Equal(t, first, second)
}

func TestLookup(t *testing.T) {
	_, registry := newRegistry(t)
	require.NoError(t, registry.Seed(context.Background()))

	perm, err := registry.Lookup(context.Background(), "pos.sale.create")
	require.NoError(t, err)
	assert.Equal(t, "pos", perm.Module)
	assert.Equal(t, "sale.create", perm.Action)

	_, err = registry.Lookup(context.Background(), "no.such.permission")
	assert.ErrorIs(t, err, permissiondomain.ErrPermissionNotFound)
	_, err = registry.Lookup(context.Background(), "   ")
	assert.ErrorIs(t, err, permissiondomain.ErrInvalidIdentifier)
}

func TestCatalog_Ordered(t *testing.T) {
	_, registry := newRegistry(t)
	require.NoError(t, registry.Seed(context.Background()))

	rows, err := registry.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, len(Catalog()))
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		ordered := prev.Module < cur.Module ||
			(prev.Module == cur.Module && prev.Action <= cur.Action)
		assert.True(t, ordered, "catalog not ordered at %d", i)
	}
}
