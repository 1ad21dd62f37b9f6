// Package scheduler runs the console's background maintenance
package scheduler

import (
	"context"
	"time"

	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/models"
)

// DraftSweeper evicts abandoned campaign drafts
type DraftSweeper interface {
	SweepIdleDrafts() int
}

// CatalogWarmer reloads the theme and location catalogs
type CatalogWarmer interface {
	RefreshCatalogs(ctx context.Context) error
	Catalogs(ctx context.Context) (models.Catalogs, []string)
}

// MaintenanceScheduler periodically sweeps idle drafts and keeps the catalog cache warm
type MaintenanceScheduler struct {
	drafts   DraftSweeper
	catalogs CatalogWarmer
	interval time.Duration
	timeout  time.Duration
}

// NewMaintenanceScheduler builds a scheduler. A nil catalogs skips cache warming.
func NewMaintenanceScheduler(drafts DraftSweeper, catalogs CatalogWarmer, interval, timeout time.Duration) *MaintenanceScheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MaintenanceScheduler{
		drafts:   drafts,
		catalogs: catalogs,
		interval: interval,
		timeout:  timeout,
	}
}

// Start launches the loop in a background goroutine and returns a stop function
func (s *MaintenanceScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	return cancel
}

// RunOnce performs a single maintenance pass
func (s *MaintenanceScheduler) RunOnce(ctx context.Context) {
	if s.drafts != nil {
		remaining := s.drafts.SweepIdleDrafts()
		logx.L().Debugw("idle drafts swept", "remaining", remaining)
	}

	if s.catalogs == nil || ctx.Err() != nil {
		return
	}

	warmCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.catalogs.RefreshCatalogs(warmCtx); err != nil {
		logx.L().Warnw("catalog cache invalidation failed", "error", err)
		return
	}
	catalogs, warnings := s.catalogs.Catalogs(warmCtx)
	if len(warnings) > 0 {
		logx.L().Warnw("catalog cache warmed with gaps", "warnings", warnings)
		return
	}
	logx.L().Infow("catalog cache warmed",
		"themes", len(catalogs.Themes),
		"locations", len(catalogs.Locations),
	)
}
