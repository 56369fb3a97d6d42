package role

import (
	"github.com/veloretail/velo/internal/role/service"
	"go.uber.org/fx"
)

var Module = fx.Module("role.service",
	fx.Provide(service.NewService),
)
