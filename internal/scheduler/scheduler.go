package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/lease-service/internal/models"
	"github.com/Dan9191/lease-service/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner runs the rent engine
type Runner interface {
	RunRentEngine(ctx context.Context, opts service.RunOptions) (*models.RunSummary, error)
}

// Scheduler triggers the rent engine on a cron schedule
type Scheduler struct {
	cron       *cron.Cron
	runner     Runner
	runTimeout time.Duration
	log        *logrus.Logger
}

// New creates a scheduler that runs the engine on spec, evaluated in loc
func New(runner Runner, spec string, loc *time.Location, runTimeout time.Duration, log *logrus.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	cronLog := cron.PrintfLogger(log)
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		runner:     runner,
		runTimeout: runTimeout,
		log:        log,
	}
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return nil, fmt.Errorf("invalid engine schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduling in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Infof("Rent engine scheduled, next run at %s", e.Next.Format(time.RFC3339))
	}
}

// Stop stops scheduling and waits for a running job until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Rent engine still running at shutdown")
	}
}

// RunNow performs one full engine run
func (s *Scheduler) RunNow() {
	ctx := context.Background()
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	summary, err := s.runner.RunRentEngine(ctx, service.RunOptions{})
	if errors.Is(err, service.ErrRunInProgress) {
		s.log.Info("Scheduled rent engine run skipped: another run is in progress")
		return
	}
	if err != nil {
		s.log.Errorf("Scheduled rent engine run failed: %v", err)
		return
	}
	s.log.Infof("Scheduled rent engine run %s: %d agreements, %d schedules, %d late fees",
		summary.RunID, summary.AgreementsProcessed, summary.SchedulesCreated, summary.LateFeesProcessed)
}
