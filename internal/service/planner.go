package service

import (
	"time"

	"github.com/Dan9191/lease-service/internal/utils"
)

// Period classifies a scheduled month relative to the run date
type Period int

const (
	PeriodHistorical Period = iota
	PeriodCurrent
	PeriodNext
)

func (p Period) String() string {
	switch p {
	case PeriodHistorical:
		return "historical"
	case PeriodCurrent:
		return "current"
	case PeriodNext:
		return "next"
	default:
		return "unknown"
	}
}

// PlannedMonth is one month a lease must have a payment schedule for
type PlannedMonth struct {
	DueDate time.Time
	Period  Period
	Initial bool
}

// SchedulePlanner decides which months a lease is scheduled for on a given run date.
//
// A lease that started in or before the current month is scheduled from its
// start month through the current month. A lease starting next month gets a
// single schedule for that month. Leases starting later are deferred.
type SchedulePlanner struct{}

// Plan returns the months to schedule for a lease starting on leaseStart, as of today
func (SchedulePlanner) Plan(leaseStart, today time.Time) []PlannedMonth {
	start := utils.StartOfMonth(leaseStart)
	current := utils.StartOfMonth(today)
	next := utils.AddMonths(current, 1)

	if start.After(current) {
		if start.Equal(next) {
			return []PlannedMonth{{DueDate: start, Period: PeriodNext, Initial: true}}
		}
		return nil
	}

	n := utils.MonthSpan(start, next)
	months := make([]PlannedMonth, 0, n)
	for i := 0; i < n; i++ {
		due := utils.AddMonths(start, i)
		period := PeriodCurrent
		if due.Before(current) {
			period = PeriodHistorical
		}
		months = append(months, PlannedMonth{DueDate: due, Period: period, Initial: i == 0})
	}
	return months
}
