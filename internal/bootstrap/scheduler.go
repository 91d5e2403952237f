package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	projectshttp "github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/http"
)

// Scheduler runs housekeeping jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
}

func NewScheduler(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{cron: cron.New(), log: log}
}

// AddLimiterSweep evicts idle per-owner rate limiters on spec, e.g. "@every 5m".
func (s *Scheduler) AddLimiterSweep(spec string, limiter *projectshttp.OwnerLimiter) error {
	if limiter == nil {
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		if n := limiter.Sweep(); n > 0 {
			s.log.Debug("swept idle rate limiters", "removed", n, "remaining", limiter.Len())
		}
	})
	if err != nil {
		return fmt.Errorf("schedule limiter sweep %q: %w", spec, err)
	}
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.log.Info("cron scheduler started", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
