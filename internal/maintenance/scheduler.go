package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
)

// Scheduler runs the optimizer on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
}

// NewScheduler builds a stopped Scheduler.
func NewScheduler(log *logger.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), log: log}
}

// Start registers the optimization job under the given cron expression and
// starts the scheduler. Each run gets its own bounded context.
func (s *Scheduler) Start(spec string, opt *Optimizer) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := opt.OptimizeDatabase(ctx); err != nil {
			s.log.Warn("scheduled optimization failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("maintenance scheduler started", "schedule", spec)
	return nil
}

// Stop halts the scheduler, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
