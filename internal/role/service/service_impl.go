package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/veloretail/velo/internal/audit/domain"
	"github.com/veloretail/velo/internal/clock"
	permissiondomain "github.com/veloretail/velo/internal/permission/domain"
	roledomain "github.com/veloretail/velo/internal/role/domain"
	"github.com/veloretail/velo/internal/shopcontext"
	"github.com/veloretail/velo/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// conflictRetries bounds how often a version collision is retried before the
// caller sees the conflict.
const conflictRetries = 3

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	permissions permissiondomain.Registry
	audit       auditdomain.Service
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Permissions permissiondomain.Registry
	Audit       auditdomain.Service
}

func NewService(p ServiceParam) roledomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("role.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		permissions: p.Permissions,
		audit:       p.Audit,
	}
}

func (s *Service) CreateRole(ctx context.Context, req roledomain.CreateRoleRequest) (*roledomain.Role, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, roledomain.ErrInvalidShop
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, roledomain.ErrInvalidRoleName
	}

	perms := make(map[snowflake.ID]permissiondomain.Permission, len(req.Permissions))
	for _, identifier := range req.Permissions {
		perm, err := s.permissions.Lookup(ctx, identifier)
		if err != nil {
			return nil, err
		}
		perms[perm.ID] = perm
	}

	now := s.clock.Now()
	role := roledomain.Role{
		ID:        s.genID.Generate(),
		ShopID:    shopID,
		BranchID:  req.BranchID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stmt := tx.Model(&roledomain.Role{}).Where("shop_id = ? AND name = ?", shopID, name)
		if req.BranchID == nil {
			stmt = stmt.Where("branch_id IS NULL")
		} else {
			stmt = stmt.Where("branch_id = ?", *req.BranchID)
		}
		var count int64
		if err := stmt.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return roledomain.ErrDuplicateName
		}
		if err := tx.Create(&role).Error; err != nil {
			return err
		}
		for _, perm := range perms {
			row := roledomain.RolePermission{
				ID:           s.genID.Generate(),
				ShopID:       shopID,
				RoleID:       role.ID,
				PermissionID: perm.ID,
				CreatedAt:    now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, shopID, req.ActorID, "role.created", role.ID, map[string]any{
		"name":   role.Name,
		"global": role.BranchID == nil,
	})
	return &role, nil
}

func (s *Service) GetRole(ctx context.Context, roleID snowflake.ID) (*roledomain.Role, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, roledomain.ErrInvalidShop
	}
	return s.findRole(ctx, s.db.WithContext(ctx), shopID, roleID)
}

func (s *Service) ListRoles(ctx context.Context, req roledomain.ListRolesRequest) ([]roledomain.Role, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, roledomain.ErrInvalidShop
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	stmt := s.db.WithContext(ctx).Where("shop_id = ?", shopID)
	if req.BranchID != nil {
		stmt = stmt.Where("branch_id = ? OR branch_id IS NULL", *req.BranchID)
	}

	var roles []roledomain.Role
	err := stmt.Order("name").Limit(limit).Offset(req.Offset).Find(&roles).Error
	return roles, err
}

// DeleteRole removes a custom role together with its permission rows. The
// version check guards against a concurrent permission edit racing the delete.
func (s *Service) DeleteRole(ctx context.Context, roleID snowflake.ID, actorID *string) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return roledomain.ErrInvalidShop
	}

	var name string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.findRole(ctx, tx, shopID, roleID)
		if err != nil {
			return err
		}
		if role.IsSystem {
			return roledomain.ErrSystemRoleProtected
		}

		var assigned int64
		if err := tx.Model(&roledomain.UserRole{}).Where("role_id = ?", role.ID).Count(&assigned).Error; err != nil {
			return err
		}
		if assigned > 0 {
			return roledomain.ErrRoleInUse
		}

		res := tx.Where("id = ? AND version = ?", role.ID, role.Version).Delete(&roledomain.Role{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return roledomain.ErrConcurrencyConflict
		}
		name = role.Name
		return tx.Where("role_id = ?", role.ID).Delete(&roledomain.RolePermission{}).Error
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, shopID, actorID, "role.deleted", roleID, map[string]any{"name": name})
	return nil
}

func (s *Service) AssignPermission(ctx context.Context, roleID snowflake.ID, identifier string, actorID *string) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return roledomain.ErrInvalidShop
	}

	perm, err := s.permissions.Lookup(ctx, identifier)
	if err != nil {
		return err
	}

	changed := false
	err = s.withConflictRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			role, err := s.findRole(ctx, tx, shopID, roleID)
			if err != nil {
				return err
			}

			var count int64
			if err := tx.Model(&roledomain.RolePermission{}).
				Where("role_id = ? AND permission_id = ?", role.ID, perm.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				changed = false
				return nil
			}

			row := roledomain.RolePermission{
				ID:           s.genID.Generate(),
				ShopID:       shopID,
				RoleID:       role.ID,
				PermissionID: perm.ID,
				CreatedAt:    s.clock.Now(),
			}
			if err := tx.Create(&row).Error; err != nil {
				if db.IsDuplicateKeyErr(err) {
					changed = false
					return nil
				}
				return err
			}
			changed = true
			return s.bumpVersion(tx, role)
		})
	})
	if err != nil {
		return err
	}

	if changed {
		s.recordAudit(ctx, shopID, actorID, "role.permission_assigned", roleID, map[string]any{
			"permission": perm.Identifier,
		})
	}
	return nil
}

func (s *Service) RevokePermission(ctx context.Context, roleID snowflake.ID, identifier string, actorID *string) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return roledomain.ErrInvalidShop
	}

	perm, err := s.permissions.Lookup(ctx, identifier)
	if err != nil {
		return err
	}

	changed := false
	err = s.withConflictRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			role, err := s.findRole(ctx, tx, shopID, roleID)
			if err != nil {
				return err
			}
			if role.IsSystem && role.SeedKey != nil {
				if roledomain.SeededPermissions(*role.SeedKey)[perm.Identifier] {
					return roledomain.ErrProtectedPermission
				}
			}

			res := tx.Where("role_id = ? AND permission_id = ?", role.ID, perm.ID).
				Delete(&roledomain.RolePermission{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				changed = false
				return nil
			}
			changed = true
			return s.bumpVersion(tx, role)
		})
	})
	if err != nil {
		return err
	}

	if changed {
		s.recordAudit(ctx, shopID, actorID, "role.permission_revoked", roleID, map[string]any{
			"permission": perm.Identifier,
		})
	}
	return nil
}

func (s *Service) ListPermissions(ctx context.Context, roleID snowflake.ID) ([]string, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, roledomain.ErrInvalidShop
	}

	if _, err := s.findRole(ctx, s.db.WithContext(ctx), shopID, roleID); err != nil {
		return nil, err
	}

	var identifiers []string
	err := s.db.WithContext(ctx).
		Model(&roledomain.RolePermission{}).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.identifier").
		Pluck("permissions.identifier", &identifiers).Error
	return identifiers, err
}

func (s *Service) AssignRole(ctx context.Context, userID, roleID snowflake.ID, actorID *string) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return roledomain.ErrInvalidShop
	}

	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findRole(ctx, tx, shopID, roleID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&roledomain.UserRole{}).
			Where("user_id = ? AND role_id = ?", userID, roleID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		row := roledomain.UserRole{
			ID:        s.genID.Generate(),
			ShopID:    shopID,
			UserID:    userID,
			RoleID:    roleID,
			CreatedAt: s.clock.Now(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return nil
			}
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		s.recordAudit(ctx, shopID, actorID, "role.assigned", roleID, map[string]any{
			"user_id": userID.String(),
		})
	}
	return nil
}

func (s *Service) UnassignRole(ctx context.Context, userID, roleID snowflake.ID, actorID *string) error {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return roledomain.ErrInvalidShop
	}

	res := s.db.WithContext(ctx).
		Where("shop_id = ? AND user_id = ? AND role_id = ?", shopID, userID, roleID).
		Delete(&roledomain.UserRole{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return roledomain.ErrAssignmentNotFound
	}

	s.recordAudit(ctx, shopID, actorID, "role.unassigned", roleID, map[string]any{
		"user_id": userID.String(),
	})
	return nil
}

func (s *Service) GrantsForUser(ctx context.Context, userID snowflake.ID) ([]roledomain.RoleGrant, error) {
	shopID, ok := shopcontext.ShopIDFromContext(ctx)
	if !ok || shopID == 0 {
		return nil, roledomain.ErrInvalidShop
	}

	var roles []roledomain.Role
	if err := s.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND roles.shop_id = ?", userID, shopID).
		Find(&roles).Error; err != nil {
		return nil, err
	}

	grants := make([]roledomain.RoleGrant, 0, len(roles))
	for _, role := range roles {
		var identifiers []string
		if err := s.db.WithContext(ctx).
			Model(&roledomain.RolePermission{}).
			Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
			Where("role_permissions.role_id = ?", role.ID).
			Pluck("permissions.identifier", &identifiers).Error; err != nil {
			return nil, err
		}
		grants = append(grants, roledomain.RoleGrant{
			RoleID:      role.ID,
			BranchID:    role.BranchID,
			Permissions: identifiers,
		})
	}
	return grants, nil
}

func (s *Service) findRole(ctx context.Context, tx *gorm.DB, shopID, roleID snowflake.ID) (*roledomain.Role, error) {
	var role roledomain.Role
	if err := tx.Where("shop_id = ? AND id = ?", shopID, roleID).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, roledomain.ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

// bumpVersion advances the role version guarded by the value just read. Zero
// rows affected means another writer got there first.
func (s *Service) bumpVersion(tx *gorm.DB, role *roledomain.Role) error {
	res := tx.Model(&roledomain.Role{}).
		Where("id = ? AND version = ?", role.ID, role.Version).
		Updates(map[string]any{
			"version":    role.Version + 1,
			"updated_at": s.clock.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return roledomain.ErrConcurrencyConflict
	}
	return nil
}

func (s *Service) withConflictRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = fn()
		if !errors.Is(err, roledomain.ErrConcurrencyConflict) {
			return err
		}
	}
	return err
}

func (s *Service) recordAudit(ctx context.Context, shopID snowflake.ID, actorID *string, action string, roleID snowflake.ID, metadata map[string]any) {
	actorType := auditdomain.ActorTypeUser
	if actorID == nil {
		actorType = auditdomain.ActorTypeSystem
	}
	if err := s.audit.AuditLog(ctx, shopID, actorType, actorID, action, "role", roleID.String(), metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
