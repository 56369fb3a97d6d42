package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/veloretail/velo/internal/audit/domain"
	"github.com/veloretail/velo/internal/clock"
	"github.com/veloretail/velo/internal/shopcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*gorm.DB, auditdomain.Service, *clock.FakeClock, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop(), Clock: fake})
	return db, svc, fake, node
}

func TestAuditLog_AppendAndList(t *testing.T) {
	_, svc, fake, node := newService(t)
	shopID := node.Generate()
	ctx := shopcontext.WithShopID(context.Background(), int64(shopID))
	actor := "user-1"

	require.NoError(t, svc.AuditLog(ctx, shopID, auditdomain.ActorTypeUser, &actor,
		"role.created", "role", "42", map[string]any{"name": "Shift Lead"}))
	fake.Advance(time.Minute)
	require.NoError(t, svc.AuditLog(ctx, shopID, auditdomain.ActorTypeSystem, nil,
		"subscription.suspended", "subscription", "7", nil))

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 2)
	// Newest first.
	assert.Equal(t, "subscription.suspended", resp.AuditLogs[0].Action)
	assert.Equal(t, auditdomain.ActorTypeSystem, resp.AuditLogs[0].ActorType)
	assert.Nil(t, resp.AuditLogs[0].ActorID)

	resp, err = svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "role.created"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	require.NotNil(t, resp.AuditLogs[0].ActorID)
	assert.Equal(t, actor, *resp.AuditLogs[0].ActorID)
}

func TestAuditLog_Validation(t *testing.T) {
	_, svc, _, node := newService(t)
	shopID := node.Generate()
	ctx := shopcontext.WithShopID(context.Background(), int64(shopID))

	err := svc.AuditLog(ctx, 0, auditdomain.ActorTypeSystem, nil, "x", "y", "1", nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidShop)

	err = svc.AuditLog(ctx, shopID, auditdomain.ActorTypeSystem, nil, "  ", "y", "1", nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
