// Package scheduler drives the periodic lifecycle sweeps. Sweeps re-derive
// everything from timestamps and the ledger, so a missed or doubled round is
// harmless.
package scheduler

import (
	"context"
	"time"

	"github.com/veloretail/velo/internal/clock"
	"github.com/veloretail/velo/internal/config"
	"github.com/veloretail/velo/internal/observability/metrics"
	subscriptiondomain "github.com/veloretail/velo/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(register),
)

type Scheduler struct {
	subs  subscriptiondomain.Service
	log   *zap.Logger
	clock clock.Clock
	cfg   config.SchedulerConfig

	stop chan struct{}
	done chan struct{}
}

type Param struct {
	fx.In

	Subs  subscriptiondomain.Service
	Log   *zap.Logger
	Clock clock.Clock
	Cfg   config.SchedulerConfig
}

func New(p Param) *Scheduler {
	return &Scheduler{
		subs:  p.Subs,
		log:   p.Log.Named("scheduler"),
		clock: p.Clock,
		cfg:   p.Cfg,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// RunOnce executes one round of all three sweeps in dependency order: trial
// endings first, then period endings, then grace expirations.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.clock.Now()
	s.sweep(ctx, "trial_end", func() (int, error) {
		return s.subs.SweepTrialEnds(ctx, now, s.cfg.BatchSize)
	})
	s.sweep(ctx, "period_end", func() (int, error) {
		return s.subs.SweepPeriodEnds(ctx, now, s.cfg.BatchSize)
	})
	s.sweep(ctx, "grace_expiry", func() (int, error) {
		return s.subs.SweepGraceExpiry(ctx, now, s.cfg.BatchSize)
	})
}

func (s *Scheduler) sweep(ctx context.Context, name string, fn func() (int, error)) {
	start := time.Now()
	transitions, err := fn()
	metrics.ObserveSweep(name, transitions, time.Since(start), err)
	if err != nil {
		s.log.Error("sweep failed", zap.String("sweep", name), zap.Error(err))
		return
	}
	if transitions > 0 {
		s.log.Info("sweep applied transitions",
			zap.String("sweep", name), zap.Int("transitions", transitions))
	}
}

func (s *Scheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.RunOnce(context.Background())
		}
	}
}

func register(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("scheduler started", zap.Duration("interval", s.cfg.Interval))
			go s.run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(s.stop)
			select {
			case <-s.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		},
	})
}
