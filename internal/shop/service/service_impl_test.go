package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/veloretail/velo/internal/clock"
	shopdomain "github.com/veloretail/velo/internal/shop/domain"
	"github.com/veloretail/velo/internal/shopcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*gorm.DB, shopdomain.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&shopdomain.Shop{},
		&shopdomain.Branch{},
		&shopdomain.User{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fake,
	})
	return db, svc
}

func TestCreateShop_SlugAndDuplicate(t *testing.T) {
	_, svc := newService(t)

	shop, err := svc.CreateShop(context.Background(), shopdomain.CreateShopRequest{Name: "Warung Kopi 88"})
	require.NoError(t, err)
	assert.Equal(t, "warung-kopi-88", shop.Slug)

	_, err = svc.CreateShop(context.Background(), shopdomain.CreateShopRequest{Name: "Warung Kopi 88"})
	assert.ErrorIs(t, err, shopdomain.ErrDuplicateSlug)

	_, err = svc.CreateShop(context.Background(), shopdomain.CreateShopRequest{Name: "  "})
	assert.ErrorIs(t, err, shopdomain.ErrInvalidName)
}

func TestBranches_ScopedToShop(t *testing.T) {
	db, svc := newService(t)

	shop, err := svc.CreateShop(context.Background(), shopdomain.CreateShopRequest{Name: "Demo"})
	require.NoError(t, err)
	ctx := shopcontext.WithShopID(context.Background(), int64(shop.ID))

	_, err = svc.CreateBranch(ctx, shopdomain.CreateBranchRequest{Name: "Downtown"})
	require.NoError(t, err)
	_, err = svc.CreateBranch(ctx, shopdomain.CreateBranchRequest{Name: "Downtown"})
	assert.ErrorIs(t, err, shopdomain.ErrDuplicateSlug)

	// The same branch slug under another shop does not collide.
	other, err := svc.CreateShop(context.Background(), shopdomain.CreateShopRequest{Name: "Other"})
	require.NoError(t, err)
	otherCtx := shopcontext.WithShopID(context.Background(), int64(other.ID))
	_, err = svc.CreateBranch(otherCtx, shopdomain.CreateBranchRequest{Name: "Downtown"})
	require.NoError(t, err)

	count, err := svc.CountBranches(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Counts feed plan limit checks, so they must be tenant scoped.
	var total int64
	require.NoError(t, db.Model(&shopdomain.Branch{}).Count(&total).Error)
	assert.Equal(t, int64(2), total)
}

func TestCounts_RequireShopContext(t *testing.T) {
	_, svc := newService(t)

	_, err := svc.CountBranches(context.Background())
	assert.ErrorIs(t, err, shopdomain.ErrInvalidShop)
	_, err = svc.CountUsers(context.Background())
	assert.ErrorIs(t, err, shopdomain.ErrInvalidShop)
}
