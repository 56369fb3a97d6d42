package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/veloretail/velo/internal/audit/domain"
	"github.com/veloretail/velo/internal/clock"
	"github.com/veloretail/velo/internal/shopcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	mu      sync.Mutex
	entropy *rand.Rand
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

func NewService(p ServiceParam) auditdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("audit.service"),
		clock:   p.Clock,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AuditLog appends one entry. ULID IDs keep the log sortable by creation time.
func (s *Service) AuditLog(ctx context.Context, shopID snowflake.ID, actorType auditdomain.ActorType, actorID *string, action, targetType, targetID string, metadata map[string]any) error {
	if shopID == 0 {
		return auditdomain.ErrInvalidShop
	}
	if strings.TrimSpace(action) == "" {
		return auditdomain.ErrInvalidAction
	}

	now := s.clock.Now()
	entry := auditdomain.AuditLog{
		ID:         s.newID(now),
		ShopID:     shopID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		CreatedAt:  now,
	}
	if metadata != nil {
		entry.Metadata = datatypes.JSONMap(metadata)
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.Warn("audit append failed",
			zap.String("action", action),
			zap.String("target_type", targetType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidShop
	}
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	stmt := s.db.WithContext(ctx).Where("shop_id = ?", shopID)
	if req.Action != "" {
		stmt = stmt.Where("action = ?", req.Action)
	}
	if req.TargetType != "" {
		stmt = stmt.Where("target_type = ?", req.TargetType)
	}
	if req.TargetID != "" {
		stmt = stmt.Where("target_id = ?", req.TargetID)
	}
	if req.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", *req.StartAt)
	}
	if req.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", *req.EndAt)
	}

	var entries []auditdomain.AuditLog
	if err := stmt.Order("id desc").Limit(limit).Find(&entries).Error; err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}
	return auditdomain.ListAuditLogResponse{AuditLogs: entries}, nil
}

func (s *Service) newID(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
}
