package engine

import (
	"context"
	"time"

	"pa-intake/config"
	"pa-intake/session"

	"go.uber.org/zap"
)

// Reaper deletes sessions idle past the retention age so abandoned
// conversations do not accumulate in the store.
type Reaper struct {
	store  session.Store
	cfg    *config.Config
	logger *zap.Logger
}

func NewReaper(store session.Store, cfg *config.Config, logger *zap.Logger) *Reaper {
	return &Reaper{store: store, cfg: cfg, logger: logger}
}

// SweepOnce removes stale sessions and reports how many were deleted.
func (r *Reaper) SweepOnce(ctx context.Context) (int, error) {
	removed, err := r.store.Sweep(ctx, r.cfg.SessionRetentionAge)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		r.logger.Info("stale sessions removed",
			zap.Int("count", removed),
			zap.Duration("retention_age", r.cfg.SessionRetentionAge))
	} else {
		r.logger.Debug("no stale sessions found")
	}
	return removed, nil
}

// Run sweeps on the configured interval until the context is cancelled.
// Intended to be launched as a goroutine at startup.
func (r *Reaper) Run(ctx context.Context) {
	if !r.cfg.CleanupEnabled {
		r.logger.Info("session cleanup disabled")
		return
	}
	r.logger.Info("session cleanup started",
		zap.Duration("interval", r.cfg.CleanupInterval),
		zap.Duration("retention_age", r.cfg.SessionRetentionAge))

	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("session cleanup stopped")
			return
		case <-ticker.C:
			if _, err := r.SweepOnce(ctx); err != nil {
				r.logger.Error("session sweep failed", zap.Error(err))
			}
		}
	}
}
