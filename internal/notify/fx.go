package notify

import (
	notifydomain "github.com/veloretail/velo/internal/notify/domain"
	"github.com/veloretail/velo/internal/notify/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notify.service",
	fx.Provide(service.NewService),
	fx.Provide(func(svc notifydomain.Service) notifydomain.Publisher { return svc }),
)
