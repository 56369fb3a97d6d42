package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/veloretail/velo/internal/clock"
	notifydomain "github.com/veloretail/velo/internal/notify/domain"
	"github.com/veloretail/velo/internal/shopcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*gorm.DB, notifydomain.Service, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&notifydomain.Notification{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fake,
	})
	return db, svc, node
}

func TestPublish_DedupKeyCollapsesReplays(t *testing.T) {
	db, svc, node := newService(t)
	shopID := node.Generate()

	n := &notifydomain.Notification{
		ShopID:   shopID,
		Title:    "Payment due",
		Message:  "Your subscription is past due.",
		Severity: notifydomain.SeverityWarning,
		DedupKey: "sub-1-past-due",
	}
	require.NoError(t, svc.Publish(context.Background(), n))

	replay := &notifydomain.Notification{
		ShopID:   shopID,
		Title:    "Payment due",
		Message:  "Your subscription is past due.",
		Severity: notifydomain.SeverityWarning,
		DedupKey: "sub-1-past-due",
	}
	require.NoError(t, svc.Publish(context.Background(), replay))

	var count int64
	require.NoError(t, db.Model(&notifydomain.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMarkRead_RecipientRules(t *testing.T) {
	db, svc, node := newService(t)
	shopID := node.Generate()
	recipient := node.Generate()
	other := node.Generate()
	ctx := shopcontext.WithShopID(context.Background(), int64(shopID))

	direct := &notifydomain.Notification{
		ShopID: shopID, UserID: &recipient,
		Title: "Hello", Message: "For you", DedupKey: "direct-1",
	}
	require.NoError(t, svc.Publish(ctx, direct))

	err := svc.MarkRead(ctx, direct.ID.String(), other.String())
	assert.ErrorIs(t, err, notifydomain.ErrNotRecipient)

	require.NoError(t, svc.MarkRead(ctx, direct.ID.String(), recipient.String()))
	// Acknowledging twice is fine.
	require.NoError(t, svc.MarkRead(ctx, direct.ID.String(), recipient.String()))

	var stored notifydomain.Notification
	require.NoError(t, db.First(&stored, "id = ?", direct.ID).Error)
	assert.True(t, stored.Read)
	require.NotNil(t, stored.ReadAt)

	// Group notifications can be acknowledged by anyone in the shop.
	group := &notifydomain.Notification{
		ShopID: shopID, Title: "Notice", Message: "For all admins", DedupKey: "group-1",
	}
	require.NoError(t, svc.Publish(ctx, group))
	require.NoError(t, svc.MarkRead(ctx, group.ID.String(), other.String()))
}
