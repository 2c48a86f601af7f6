// Package scheduler drives CORTEX's periodic work — decay ticks, layer
// sync, and consolidation — from a single cron timer (§9 "Periodic
// work"), rather than one goroutine-with-ticker per concern.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ember-run/ember/internal/memoryintegration"
)

// Scheduler owns the single periodic timer driving memory maintenance.
type Scheduler struct {
	cron *cron.Cron
	mem  *memoryintegration.Integration
}

// New builds a scheduler over mem. It does not start running until Start
// is called.
func New(mem *memoryintegration.Integration) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cron.DiscardLogger)),
		mem:  mem,
	}
}

// Start registers the sync and consolidation jobs and starts the
// underlying cron scheduler. syncSpec/consolidateSpec are standard cron
// expressions (e.g. "@every 1m", "@every 1h").
func (s *Scheduler) Start(syncSpec, consolidateSpec string) error {
	if _, err := s.cron.AddFunc(syncSpec, func() {
		s.mem.MaybeSync(context.Background(), time.Now())
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(consolidateSpec, func() {
		report := s.mem.Consolidate(context.Background(), time.Now())
		slog.Info("memory consolidation complete", slog.Any("report", report))
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
