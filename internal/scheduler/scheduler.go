// Package scheduler runs the periodic watch-list sync.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"scannerpro/internal/syncer"
)

// Scheduler triggers SyncAll on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	syncer *syncer.Syncer
	log    *zap.Logger
	ctx    context.Context
}

// New creates a Scheduler bound to ctx; jobs check it before running.
func New(ctx context.Context, sy *syncer.Syncer, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		syncer: sy,
		log:    log,
		ctx:    ctx,
	}
}

// Register adds the sync job under the given cron spec (seconds-first).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.syncTask); err != nil {
		return fmt.Errorf("register sync task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) syncTask() {
	if s.ctx.Err() != nil {
		return
	}
	s.log.Info("running scheduled sync")
	results := s.syncer.SyncAll(s.ctx)
	total := 0
	for _, r := range results {
		total += r.NewRecords
	}
	s.log.Info("scheduled sync finished",
		zap.Int("tickers", len(results)),
		zap.Int("new_rows", total))
}
