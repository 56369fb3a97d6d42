package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/veloretail/velo/internal/clock"
	notifydomain "github.com/veloretail/velo/internal/notify/domain"
	"github.com/veloretail/velo/internal/shopcontext"
	"github.com/veloretail/velo/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

func NewService(p ServiceParam) notifydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("notify.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

// Publish stores the notification. A duplicate dedup key means the same event
// was already surfaced; the call succeeds without a second row.
func (s *Service) Publish(ctx context.Context, n *notifydomain.Notification) error {
	if n == nil || n.ShopID == 0 || strings.TrimSpace(n.DedupKey) == "" {
		return notifydomain.ErrInvalidNotification
	}

	if n.ID == 0 {
		n.ID = s.genID.Generate()
	}
	if n.Severity == "" {
		n.Severity = notifydomain.SeverityInfo
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.clock.Now()
	}

	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req notifydomain.ListNotificationRequest) (notifydomain.ListNotificationResponse, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return notifydomain.ListNotificationResponse{}, notifydomain.ErrInvalidShop
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	stmt := s.db.WithContext(ctx).Where("shop_id = ?", shopID)
	if strings.TrimSpace(req.UserID) != "" {
		userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
		if err != nil || userID == 0 {
			return notifydomain.ListNotificationResponse{}, notifydomain.ErrInvalidUser
		}
		stmt = stmt.Where("user_id = ? OR user_id IS NULL", userID)
	}
	if req.UnreadOnly {
		stmt = stmt.Where("read = ?", false)
	}

	var items []notifydomain.Notification
	if err := stmt.Order("created_at desc").Limit(limit).Find(&items).Error; err != nil {
		return notifydomain.ListNotificationResponse{}, err
	}
	return notifydomain.ListNotificationResponse{Notifications: items}, nil
}

// MarkRead flips the read flag. Only the addressed recipient may acknowledge;
// group notifications (no target user) can be acknowledged by any shop user.
func (s *Service) MarkRead(ctx context.Context, notificationID, userID string) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return notifydomain.ErrInvalidShop
	}

	id, err := snowflake.ParseString(strings.TrimSpace(notificationID))
	if err != nil || id == 0 {
		return notifydomain.ErrInvalidNotification
	}
	uid, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil || uid == 0 {
		return notifydomain.ErrInvalidUser
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n notifydomain.Notification
		if err := tx.Where("shop_id = ? AND id = ?", shopID, id).First(&n).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notifydomain.ErrNotificationNotFound
			}
			return err
		}
		if n.UserID != nil && *n.UserID != uid {
			return notifydomain.ErrNotRecipient
		}
		if n.Read {
			return nil
		}

		now := s.clock.Now()
		return tx.Model(&notifydomain.Notification{}).
			Where("id = ?", n.ID).
			Updates(map[string]any{"read": true, "read_at": now}).Error
	})
}
