package automation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kacamatagratis/kacamatagratis/metrics"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
)

const (
	runLockKey = "automation:run-lock"
	// Long enough to outlive any realistic cycle; a crashed holder's
	// lease expires instead of wedging the scheduler.
	runLockTTL = 5 * time.Minute
)

// Runner drives the engine on a server-resident ticker and arbitrates
// concurrent triggers (ticker vs cron vs manual) with a redis lease.
// The browser-tab interval of the old deployment is gone; the process
// schedules itself.
type Runner struct {
	engine   *Engine
	settings *repositories.SettingsRepository
	rdb      *redis.Client
	log      *zap.Logger
}

func NewRunner(engine *Engine, settings *repositories.SettingsRepository, rdb *redis.Client, log *zap.Logger) *Runner {
	return &Runner{engine: engine, settings: settings, rdb: rdb, log: log}
}

// TryRun executes one cycle unless another trigger currently holds the
// lease. ran=false with a nil error means the tick was skipped.
func (r *Runner) TryRun(ctx context.Context, trigger string) (*Results, bool, error) {
	token := uuid.NewString()
	acquired, err := r.rdb.SetNX(ctx, runLockKey, token, runLockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		r.log.Info("automation cycle already in progress, skipping", zap.String("trigger", trigger))
		return nil, false, nil
	}
	defer func() {
		// Only drop our own lease; an expired one may belong to a newer run.
		if val, err := r.rdb.Get(ctx, runLockKey).Result(); err == nil && val == token {
			r.rdb.Del(ctx, runLockKey)
		}
	}()

	metrics.AutomationCyclesTotal.WithLabelValues(trigger).Inc()
	res, err := r.engine.RunCycle(ctx)
	if err != nil {
		return nil, true, err
	}
	return res, true, nil
}

// Start loops until ctx is cancelled, re-reading the interval from the
// settings document before every sleep so admin changes apply without a
// restart.
func (r *Runner) Start(ctx context.Context) {
	r.log.Info("automation scheduler started")
	for {
		interval := 60 * time.Second
		if cfg, err := r.settings.GetAutomation(); err != nil {
			r.log.Error("failed to read automation settings", zap.Error(err))
		} else if cfg.EngineIntervalSeconds > 0 {
			interval = time.Duration(cfg.EngineIntervalSeconds) * time.Second
		}

		select {
		case <-ctx.Done():
			r.log.Info("automation scheduler stopped")
			return
		case <-time.After(interval):
		}

		if _, ran, err := r.TryRun(ctx, "ticker"); err != nil {
			if err == ErrAutomationDisabled {
				continue
			}
			r.log.Error("automation cycle failed", zap.Error(err))
		} else if !ran {
			continue
		}
	}
}
