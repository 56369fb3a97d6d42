package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/veloretail/velo/internal/clock"
	shopdomain "github.com/veloretail/velo/internal/shop/domain"
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

func NewService(p ServiceParam) shopdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("shop.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) CreateShop(ctx context.Context, req shopdomain.CreateShopRequest) (shopdomain.Shop, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return shopdomain.Shop{}, shopdomain.ErrInvalidName
	}

	now := s.clock.Now()
	shop := shopdomain.Shop{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&shop).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return shopdomain.Shop{}, shopdomain.ErrDuplicateSlug
		}
		return shopdomain.Shop{}, err
	}
	return shop, nil
}

func (s *Service) CreateBranch(ctx context.Context, req shopdomain.CreateBranchRequest) (shopdomain.Branch, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return shopdomain.Branch{}, shopdomain.ErrInvalidShop
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return shopdomain.Branch{}, shopdomain.ErrInvalidName
	}

	now := s.clock.Now()
	branch := shopdomain.Branch{
		ID:        s.genID.Generate(),
		ShopID:    shopID,
		Name:      name,
		Slug:      slug.Make(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&branch).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return shopdomain.Branch{}, shopdomain.ErrDuplicateSlug
		}
		return shopdomain.Branch{}, err
	}
	return branch, nil
}

func (s *Service) GetShop(ctx context.Context) (shopdomain.Shop, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return shopdomain.Shop{}, shopdomain.ErrInvalidShop
	}

	var shop shopdomain.Shop
	if err := s.db.WithContext(ctx).Where("id = ?", shopID).First(&shop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shopdomain.Shop{}, shopdomain.ErrShopNotFound
		}
		return shopdomain.Shop{}, err
	}
	return shop, nil
}

func (s *Service) CountBranches(ctx context.Context) (int64, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return 0, shopdomain.ErrInvalidShop
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&shopdomain.Branch{}).Where("shop_id = ?", shopID).Count(&count).Error
	return count, err
}

func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return 0, shopdomain.ErrInvalidShop
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&shopdomain.User{}).Where("shop_id = ?", shopID).Count(&count).Error
	return count, err
}
