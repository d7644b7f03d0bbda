package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dan9191/lease-service/internal/config"
	"github.com/Dan9191/lease-service/internal/models"
	"github.com/Dan9191/lease-service/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrRunInProgress is returned when another rent engine run holds the run lock
var ErrRunInProgress = errors.New("rent engine run already in progress")

const runLockName = "rent-engine"

// Store is the data-store contract consumed by the rent engine
type Store interface {
	ListActiveLeases(ctx context.Context) ([]models.Lease, error)
	GetActiveLease(ctx context.Context, id string) (*models.Lease, error)
	ScheduleDueDates(ctx context.Context, leaseID string) ([]time.Time, error)
	CreateSchedule(ctx context.Context, schedule *models.PaymentSchedule) (bool, error)
	HasIncomeBetween(ctx context.Context, leaseID string, from, to time.Time) (bool, error)
	CreateLateFee(ctx context.Context, fee *models.UnifiedPayment) (bool, error)
	RaiseLateFeeAccrual(ctx context.Context, leaseID string, dueDate time.Time, days int, fee decimal.Decimal) (bool, error)
	TryAcquireRunLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, name, holder string) error
}

// Reconciler fills payment rows the engine left missing
type Reconciler interface {
	GenerateMissingPayments(ctx context.Context) error
}

// Notifier delivers a report of a finished run
type Notifier interface {
	SendRunReport(summary *models.RunSummary) error
}

// RunOptions scopes a rent engine run
type RunOptions struct {
	// AsOf is the reference instant of the run. Zero means now.
	AsOf time.Time
	// LeaseID restricts the run to a single active lease.
	LeaseID string
	// HistoricalOnly limits the run to months before the current one.
	HistoricalOnly bool
}

// Service runs the rent schedule and late-fee accrual engine
type Service struct {
	store      Store
	reconciler Reconciler
	notifier   Notifier
	log        *logrus.Logger
	config     *config.Config

	planner    SchedulePlanner
	historical AccrualPolicy
	live       AccrualPolicy

	now     func() time.Time
	running sync.Mutex
}

// NewService initializes a new service
func NewService(store Store, reconciler Reconciler, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		store:      store,
		reconciler: reconciler,
		log:        log,
		config:     cfg,
		historical: HistoricalAccrualPolicy{AssumedDays: cfg.HistoricalOverdueDays},
		live:       LiveAccrualPolicy{},
		now:        time.Now,
	}
}

// SetNotifier registers a notifier that receives a report after every run
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// run carries the shared state of one engine invocation
type run struct {
	id             string
	today          time.Time
	historicalOnly bool

	mu      sync.Mutex
	summary *models.RunSummary
}

func (r *run) add(res leaseResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.processed {
		r.summary.AgreementsProcessed++
	} else {
		r.summary.AgreementsSkipped++
	}
	r.summary.SchedulesCreated += res.schedulesCreated
	r.summary.HistoricalSchedulesCreated += res.historicalCreated
	r.summary.LateFeesProcessed += res.lateFees
	r.summary.Failures = append(r.summary.Failures, res.failures...)
}

// RunRentEngine materializes missing payment schedules and accrues late fees for active leases.
// The returned summary is never nil; err is set only when the run as a whole failed.
func (s *Service) RunRentEngine(ctx context.Context, opts RunOptions) (*models.RunSummary, error) {
	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}
	today := utils.CalendarDate(asOf, s.config.Location)

	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		AsOf:      today.Format("2006-01-02"),
		StartedAt: time.Now().UTC(),
	}
	log := s.log.WithFields(logrus.Fields{"run_id": summary.RunID, "as_of": summary.AsOf})

	if !s.running.TryLock() {
		return s.reject(summary, ErrRunInProgress)
	}
	defer s.running.Unlock()

	lockCtx, cancel := s.storeContext(ctx)
	acquired, err := s.store.TryAcquireRunLock(lockCtx, runLockName, summary.RunID, s.config.RunLockTTL)
	cancel()
	if err != nil {
		return s.reject(summary, err)
	}
	if !acquired {
		return s.reject(summary, ErrRunInProgress)
	}
	defer func() {
		releaseCtx, cancel := s.storeContext(context.WithoutCancel(ctx))
		defer cancel()
		if err := s.store.ReleaseRunLock(releaseCtx, runLockName, summary.RunID); err != nil {
			log.Errorf("Failed to release run lock: %v", err)
		}
	}()

	leases, err := s.loadLeases(ctx, opts.LeaseID)
	if err != nil {
		return s.fail(summary, err)
	}
	log.Infof("Processing %d active lease(s)", len(leases))

	r := &run{
		id:             summary.RunID,
		today:          today,
		historicalOnly: opts.HistoricalOnly,
		summary:        summary,
	}
	if err := s.processLeases(ctx, leases, r); err != nil {
		return s.fail(summary, err)
	}

	if s.reconciler != nil {
		recCtx, cancel := s.storeContext(ctx)
		if err := s.reconciler.GenerateMissingPayments(recCtx); err != nil {
			log.Warnf("Reconciliation pass failed: %v", err)
		}
		cancel()
	}

	summary.Success = true
	s.finish(summary)
	return summary, nil
}

func (s *Service) loadLeases(ctx context.Context, leaseID string) ([]models.Lease, error) {
	c, cancel := s.storeContext(ctx)
	defer cancel()

	if leaseID != "" {
		lease, err := s.store.GetActiveLease(c, leaseID)
		if err != nil {
			return nil, fmt.Errorf("failed to load lease %s: %w", leaseID, err)
		}
		return []models.Lease{*lease}, nil
	}

	leases, err := s.store.ListActiveLeases(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load active leases: %w", err)
	}
	return leases, nil
}

// processLeases fans leases out to a bounded worker pool. Each lease is owned by
// exactly one worker for the whole run. Cancellation stops new leases from starting;
// a lease already in progress runs to completion.
func (s *Service) processLeases(ctx context.Context, leases []models.Lease, r *run) error {
	workers := s.config.Workers
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	var abandoned atomic.Bool
	seen := make(map[string]struct{}, len(leases))
	for _, lease := range leases {
		if _, dup := seen[lease.ID]; dup {
			continue
		}
		seen[lease.ID] = struct{}{}

		if ctx.Err() != nil {
			abandoned.Store(true)
			break
		}
		lease := lease
		g.Go(func() error {
			if ctx.Err() != nil {
				abandoned.Store(true)
				return nil
			}
			r.add(s.processLease(context.WithoutCancel(ctx), lease, r))
			return nil
		})
	}
	_ = g.Wait()

	if abandoned.Load() {
		return fmt.Errorf("run cancelled: %w", ctx.Err())
	}
	return nil
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.StoreTimeout)
}

// reject ends a run that never started because it could not take the run lock
func (s *Service) reject(summary *models.RunSummary, err error) (*models.RunSummary, error) {
	summary.Success = false
	summary.Error = err.Error()
	summary.FinishedAt = time.Now().UTC()
	s.log.WithField("run_id", summary.RunID).Warnf("Rent engine run rejected: %v", err)
	return summary, err
}

func (s *Service) fail(summary *models.RunSummary, err error) (*models.RunSummary, error) {
	summary.Success = false
	summary.Error = err.Error()
	s.log.WithField("run_id", summary.RunID).Errorf("Rent engine run failed: %v", err)
	s.finish(summary)
	return summary, err
}

func (s *Service) finish(summary *models.RunSummary) {
	summary.FinishedAt = time.Now().UTC()
	sort.SliceStable(summary.Failures, func(i, j int) bool {
		a, b := summary.Failures[i], summary.Failures[j]
		if a.AgreementNumber != b.AgreementNumber {
			return a.AgreementNumber < b.AgreementNumber
		}
		return a.Month < b.Month
	})

	s.log.WithFields(logrus.Fields{
		"run_id":                       summary.RunID,
		"success":                      summary.Success,
		"agreements_processed":         summary.AgreementsProcessed,
		"agreements_skipped":           summary.AgreementsSkipped,
		"schedules_created":            summary.SchedulesCreated,
		"historical_schedules_created": summary.HistoricalSchedulesCreated,
		"late_fees_processed":          summary.LateFeesProcessed,
		"failures":                     len(summary.Failures),
		"duration":                     summary.FinishedAt.Sub(summary.StartedAt).String(),
	}).Info("Rent engine run finished")

	if s.notifier != nil {
		if err := s.notifier.SendRunReport(summary); err != nil {
			s.log.Warnf("Failed to send run report: %v", err)
		}
	}
}
