package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/lease-service/internal/models"
	"github.com/Dan9191/lease-service/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type leaseResult struct {
	processed         bool
	schedulesCreated  int
	historicalCreated int
	lateFees          int
	failures          []models.RunFailure
}

func (res *leaseResult) fail(lease models.Lease, month time.Time, op string, err error) {
	f := models.RunFailure{
		LeaseID:         lease.ID,
		AgreementNumber: lease.AgreementNumber,
		Operation:       op,
		Message:         err.Error(),
	}
	if !month.IsZero() {
		f.Month = month.Format("2006-01")
	}
	res.failures = append(res.failures, f)
}

// leaseJob is the unit of work for a single lease within a run
type leaseJob struct {
	s        *Service
	r        *run
	lease    models.Lease
	start    time.Time
	dailyFee decimal.Decimal
	// scheduled holds the months known to have a schedule, keyed by YYYY-MM
	scheduled map[string]bool
	log       *logrus.Entry
	res       leaseResult
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

func (s *Service) processLease(ctx context.Context, lease models.Lease, r *run) leaseResult {
	log := s.log.WithFields(logrus.Fields{
		"run_id":    r.id,
		"lease_id":  lease.ID,
		"agreement": lease.AgreementNumber,
	})

	if !lease.HasValidStartDate() {
		log.Warn("Lease has no valid start date, skipping")
		return leaseResult{}
	}

	j := &leaseJob{
		s:         s,
		r:         r,
		lease:     lease,
		start:     utils.CalendarDate(*lease.StartDate, lease.StartDate.Location()),
		dailyFee:  lease.EffectiveDailyLateFee(s.config.DefaultDailyLateFee),
		scheduled: make(map[string]bool),
		log:       log,
		res:       leaseResult{processed: true},
	}

	j.loadScheduled(ctx)
	j.materialize(ctx)
	if !r.historicalOnly {
		j.accrueCurrentMonth(ctx)
	}
	return j.res
}

// loadScheduled reads existing due dates. A failed read is not fatal: schedule
// inserts are idempotent, so the job proceeds as if nothing were scheduled.
func (j *leaseJob) loadScheduled(ctx context.Context) {
	c, cancel := j.s.storeContext(ctx)
	defer cancel()

	dates, err := j.s.store.ScheduleDueDates(c, j.lease.ID)
	if err != nil {
		j.log.Warnf("Failed to read existing schedules: %v", err)
		return
	}
	for _, d := range dates {
		j.scheduled[monthKey(d)] = true
	}
}

func (j *leaseJob) materialize(ctx context.Context) {
	for _, m := range j.s.planner.Plan(j.start, j.r.today) {
		if j.r.historicalOnly && m.Period != PeriodHistorical {
			continue
		}
		if !j.ensureSchedule(ctx, m.DueDate, m.Initial, m.Period) {
			continue
		}
		if m.Period == PeriodHistorical {
			j.backfillLateFee(ctx, m.DueDate)
		}
	}
}

// ensureSchedule makes sure a schedule exists for the month and reports whether it does
func (j *leaseJob) ensureSchedule(ctx context.Context, dueDate time.Time, initial bool, period Period) bool {
	if j.scheduled[monthKey(dueDate)] {
		return true
	}

	description := "Monthly rent payment for " + utils.MonthLabel(dueDate)
	if initial {
		description = "Initial rent payment for " + utils.MonthLabel(dueDate)
	}
	schedule := &models.PaymentSchedule{
		ID:          uuid.NewString(),
		LeaseID:     j.lease.ID,
		DueDate:     dueDate,
		Amount:      j.lease.RentAmount,
		Status:      models.ScheduleStatusPending,
		Description: description,
	}

	c, cancel := j.s.storeContext(ctx)
	defer cancel()
	created, err := j.s.store.CreateSchedule(c, schedule)
	if err != nil {
		j.log.Errorf("Failed to create %s schedule for %s: %v", period, utils.MonthLabel(dueDate), err)
		j.res.fail(j.lease, dueDate, "create_schedule", err)
		return false
	}

	j.scheduled[monthKey(dueDate)] = true
	if created {
		j.res.schedulesCreated++
		if period == PeriodHistorical {
			j.res.historicalCreated++
		}
		j.log.Debugf("Created schedule: %s", description)
	}
	return true
}

// hasIncome reports whether rent was received during the month starting at dueDate
func (j *leaseJob) hasIncome(ctx context.Context, dueDate time.Time) (bool, error) {
	c, cancel := j.s.storeContext(ctx)
	defer cancel()
	return j.s.store.HasIncomeBetween(c, j.lease.ID, dueDate, utils.AddMonths(dueDate, 1))
}

func (j *leaseJob) newLateFee(dueDate time.Time, days int, fee decimal.Decimal) *models.UnifiedPayment {
	due := dueDate
	return &models.UnifiedPayment{
		ID:              uuid.NewString(),
		LeaseID:         j.lease.ID,
		Type:            models.PaymentTypeLateFee,
		Amount:          j.lease.RentAmount,
		AmountPaid:      decimal.Zero,
		Balance:         j.lease.RentAmount,
		LateFineAmount:  fee,
		DaysOverdue:     days,
		OriginalDueDate: &due,
		Description:     "Late payment fee for " + utils.MonthLabel(dueDate),
	}
}

// backfillLateFee records a late fee for a closed month that was never paid.
// A month that already carries a late-fee row is left as it is.
func (j *leaseJob) backfillLateFee(ctx context.Context, dueDate time.Time) {
	paid, err := j.hasIncome(ctx, dueDate)
	if err != nil {
		j.log.Errorf("Failed to check income for %s: %v", utils.MonthLabel(dueDate), err)
		j.res.fail(j.lease, dueDate, "check_income", err)
		return
	}
	if paid {
		return
	}

	days, fee := Accrue(j.s.historical, j.dailyFee, dueDate, j.r.today)
	log := j.log.WithField("policy", j.s.historical.Name())

	c, cancel := j.s.storeContext(ctx)
	defer cancel()
	created, err := j.s.store.CreateLateFee(c, j.newLateFee(dueDate, days, fee))
	if err != nil {
		log.Errorf("Failed to create historical late fee for %s: %v", utils.MonthLabel(dueDate), err)
		j.res.fail(j.lease, dueDate, "create_late_fee", err)
		return
	}
	if created {
		j.res.lateFees++
		log.Infof("Historical late fee for %s: %d days, %s", utils.MonthLabel(dueDate), days, fee.StringFixed(2))
	}
}

// accrueCurrentMonth creates or raises the late fee of the current month while it stays unpaid
func (j *leaseJob) accrueCurrentMonth(ctx context.Context) {
	today := j.r.today
	if today.Day()-1 <= 0 {
		return
	}
	if j.start.After(today) {
		return
	}

	dueDate := utils.StartOfMonth(today)
	initial := utils.StartOfMonth(j.start).Equal(dueDate)
	if !j.ensureSchedule(ctx, dueDate, initial, PeriodCurrent) {
		return
	}

	paid, err := j.hasIncome(ctx, dueDate)
	if err != nil {
		j.log.Errorf("Failed to check current month income: %v", err)
		j.res.fail(j.lease, dueDate, "check_income", err)
		return
	}
	if paid {
		return
	}

	days, fee := Accrue(j.s.live, j.dailyFee, dueDate, today)
	log := j.log.WithField("policy", j.s.live.Name())

	c, cancel := j.s.storeContext(ctx)
	defer cancel()
	created, err := j.s.store.CreateLateFee(c, j.newLateFee(dueDate, days, fee))
	if err != nil {
		log.Errorf("Failed to create late fee: %v", err)
		j.res.fail(j.lease, dueDate, "create_late_fee", err)
		return
	}
	if created {
		j.res.lateFees++
		log.Infof("Late fee opened: %d days, %s", days, fee.StringFixed(2))
		return
	}

	uc, ucancel := j.s.storeContext(ctx)
	defer ucancel()
	updated, err := j.s.store.RaiseLateFeeAccrual(uc, j.lease.ID, dueDate, days, fee)
	if err != nil {
		log.Errorf("Failed to update late fee: %v", err)
		j.res.fail(j.lease, dueDate, "update_late_fee", fmt.Errorf("raise accrual to %d days: %w", days, err))
		return
	}
	if updated {
		j.res.lateFees++
		log.Infof("Late fee accrued: %d days, %s", days, fee.StringFixed(2))
	}
}
