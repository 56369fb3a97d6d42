// Package permission implements the static permission catalog.
package permission

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/veloretail/velo/internal/clock"
	permissiondomain "github.com/veloretail/velo/internal/permission/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("permission.registry",
	fx.Provide(NewRegistry),
)

type Registry struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

type RegistryParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

func NewRegistry(p RegistryParam) permissiondomain.Registry {
	return &Registry{
		db:    p.DB,
		log:   p.Log.Named("permission.registry"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

// Seed inserts any catalog entries missing from the store. Existing rows are
// never modified, so repeated boots are no-ops.
func (r *Registry) Seed(ctx context.Context) error {
	now := r.clock.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []permissiondomain.Permission
		if err := tx.Select("identifier").Find(&existing).Error; err != nil {
			return err
		}
		present := make(map[string]bool, len(existing))
		for _, p := range existing {
			present[p.Identifier] = true
		}

		inserted := 0
		for _, entry := range Catalog() {
			if present[entry.Identifier] {
				continue
			}
			row := permissiondomain.Permission{
				ID:          r.genID.Generate(),
				Identifier:  entry.Identifier,
				Module:      entry.Module,
				Action:      entry.Action,
				Description: entry.Description,
				CreatedAt:   now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			inserted++
		}
		if inserted > 0 {
			r.log.Info("permission catalog seeded", zap.Int("inserted", inserted))
		}
		return nil
	})
}

func (r *Registry) Lookup(ctx context.Context, identifier string) (permissiondomain.Permission, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return permissiondomain.Permission{}, permissiondomain.ErrInvalidIdentifier
	}

	var row permissiondomain.Permission
	if err := r.db.WithContext(ctx).Where("identifier = ?", identifier).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return permissiondomain.Permission{}, permissiondomain.ErrPermissionNotFound
		}
		return permissiondomain.Permission{}, err
	}
	return row, nil
}

func (r *Registry) Catalog(ctx context.Context) ([]permissiondomain.Permission, error) {
	var rows []permissiondomain.Permission
	err := r.db.WithContext(ctx).Order("module, action").Find(&rows).Error
	return rows, err
}
