// Package seed bootstraps baseline data: the permission catalog, the sellable
// plans and each shop's system roles. Every step is idempotent so the seeder
// runs on every boot.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/veloretail/velo/internal/clock"
	permissiondomain "github.com/veloretail/velo/internal/permission/domain"
	plandomain "github.com/veloretail/velo/internal/plan/domain"
	roledomain "github.com/veloretail/velo/internal/role/domain"
	shopdomain "github.com/veloretail/velo/internal/shop/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Provide(NewSeeder),
	fx.Invoke(func(lc fx.Lifecycle, s *Seeder) {
		lc.Append(fx.Hook{OnStart: s.Run})
	}),
)

type Seeder struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	registry permissiondomain.Registry
}

type SeederParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Registry permissiondomain.Registry
}

func NewSeeder(p SeederParam) *Seeder {
	return &Seeder{
		db:       p.DB,
		log:      p.Log.Named("seed"),
		genID:    p.GenID,
		clock:    p.Clock,
		registry: p.Registry,
	}
}

func (s *Seeder) Run(ctx context.Context) error {
	if err := s.registry.Seed(ctx); err != nil {
		return err
	}
	if err := s.seedPlans(ctx); err != nil {
		return err
	}
	if err := s.seedDefaultShop(ctx); err != nil {
		return err
	}
	return s.seedSystemRoles(ctx)
}

// seedDefaultShop creates one shop on a fresh database so a single-tenant
// install is usable without any signup flow.
func (s *Seeder) seedDefaultShop(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&shopdomain.Shop{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := s.clock.Now()
	shop := shopdomain.Shop{
		ID:        s.genID.Generate(),
		Name:      "Default Shop",
		Slug:      "default-shop",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&shop).Error; err != nil {
		return err
	}
	s.log.Info("default shop seeded", zap.String("shop_id", shop.ID.String()))
	return nil
}

func (s *Seeder) seedPlans(ctx context.Context) error {
	now := s.clock.Now()
	plans := []plandomain.Plan{
		{
			Code: "starter", Name: "Starter", PriceAmount: 2900, Currency: "usd",
			Interval: plandomain.IntervalMonthly, TrialDays: 14, Active: true,
			Limits: datatypes.JSONMap{plandomain.LimitMaxBranches: 1, plandomain.LimitMaxUsers: 5},
		},
		{
			Code: "pro", Name: "Pro", PriceAmount: 5900, Currency: "usd",
			Interval: plandomain.IntervalMonthly, TrialDays: 14, Active: true,
			Limits: datatypes.JSONMap{plandomain.LimitMaxBranches: 5, plandomain.LimitMaxUsers: 50},
		},
		{
			Code: "pro_annual", Name: "Pro Annual", PriceAmount: 59000, Currency: "usd",
			Interval: plandomain.IntervalAnnual, TrialDays: 14, Active: true,
			Limits: datatypes.JSONMap{plandomain.LimitMaxBranches: 5, plandomain.LimitMaxUsers: 50},
		},
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, plan := range plans {
			var count int64
			if err := tx.Model(&plandomain.Plan{}).Where("code = ?", plan.Code).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			plan.ID = s.genID.Generate()
			plan.CreatedAt = now
			plan.UpdatedAt = now
			if err := tx.Create(&plan).Error; err != nil {
				return err
			}
			s.log.Info("plan seeded", zap.String("code", plan.Code))
		}
		return nil
	})
}

func (s *Seeder) seedSystemRoles(ctx context.Context) error {
	var shops []shopdomain.Shop
	if err := s.db.WithContext(ctx).Find(&shops).Error; err != nil {
		return err
	}
	for _, shop := range shops {
		if err := s.EnsureSystemRoles(ctx, shop.ID); err != nil {
			return err
		}
	}
	return nil
}

// EnsureSystemRoles creates any missing system roles for the shop and fills
// in their seeded permissions. Existing roles keep whatever extra permissions
// an administrator has granted on top.
func (s *Seeder) EnsureSystemRoles(ctx context.Context, shopID snowflake.ID) error {
	now := s.clock.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, tpl := range roledomain.SystemRoleTemplates() {
			var role roledomain.Role
			err := tx.Where("shop_id = ? AND seed_key = ?", shopID, tpl.Key).First(&role).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				key := tpl.Key
				role = roledomain.Role{
					ID:        s.genID.Generate(),
					ShopID:    shopID,
					Name:      tpl.Name,
					IsSystem:  true,
					SeedKey:   &key,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := tx.Create(&role).Error; err != nil {
					return err
				}
				s.log.Info("system role seeded",
					zap.String("shop_id", shopID.String()), zap.String("role", tpl.Key))
			} else if err != nil {
				return err
			}

			if err := s.ensurePermissions(tx, shopID, role.ID, tpl.Permissions, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Seeder) ensurePermissions(tx *gorm.DB, shopID, roleID snowflake.ID, identifiers []string, now time.Time) error {
	var perms []permissiondomain.Permission
	if err := tx.Where("identifier IN ?", identifiers).Find(&perms).Error; err != nil {
		return err
	}

	var existing []snowflake.ID
	if err := tx.Model(&roledomain.RolePermission{}).
		Where("role_id = ?", roleID).
		Pluck("permission_id", &existing).Error; err != nil {
		return err
	}
	present := make(map[snowflake.ID]bool, len(existing))
	for _, id := range existing {
		present[id] = true
	}

	for _, perm := range perms {
		if present[perm.ID] {
			continue
		}
		row := roledomain.RolePermission{
			ID:           s.genID.Generate(),
			ShopID:       shopID,
			RoleID:       roleID,
			PermissionID: perm.ID,
			CreatedAt:    now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
