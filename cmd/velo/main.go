package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/veloretail/velo/internal/access"
	"github.com/veloretail/velo/internal/audit"
	"github.com/veloretail/velo/internal/clock"
	"github.com/veloretail/velo/internal/config"
	"github.com/veloretail/velo/internal/ledger"
	"github.com/veloretail/velo/internal/notify"
	"github.com/veloretail/velo/internal/permission"
	"github.com/veloretail/velo/internal/plan"
	"github.com/veloretail/velo/internal/role"
	"github.com/veloretail/velo/internal/scheduler"
	"github.com/veloretail/velo/internal/seed"
	"github.com/veloretail/velo/internal/shop"
	"github.com/veloretail/velo/internal/subscription"
	"github.com/veloretail/velo/pkg/db"
	"github.com/veloretail/velo/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domains
		shop.Module,
		permission.Module,
		role.Module,
		access.Module,
		plan.Module,
		ledger.Module,
		subscription.Module,
		notify.Module,
		audit.Module,

		// Background work and bootstrap
		scheduler.Module,
		seed.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
