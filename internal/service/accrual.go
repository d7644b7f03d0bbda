package service

import (
	"time"

	"github.com/Dan9191/lease-service/internal/utils"
	"github.com/shopspring/decimal"
)

// AccrualPolicy computes how many days a schedule counts as overdue
type AccrualPolicy interface {
	Name() string
	DaysOverdue(dueDate, today time.Time) int
}

// HistoricalAccrualPolicy applies to months that closed before the run.
// The whole month is taken to have elapsed unpaid.
type HistoricalAccrualPolicy struct {
	AssumedDays int
}

func (p HistoricalAccrualPolicy) Name() string { return "historical" }

func (p HistoricalAccrualPolicy) DaysOverdue(_, _ time.Time) int {
	return p.AssumedDays
}

// LiveAccrualPolicy counts the days elapsed since the due date of the current month
type LiveAccrualPolicy struct{}

func (LiveAccrualPolicy) Name() string { return "live" }

func (LiveAccrualPolicy) DaysOverdue(dueDate, today time.Time) int {
	return utils.DaysSince(dueDate, today)
}

// Accrue returns the overdue days and the late fee owed under policy
func Accrue(policy AccrualPolicy, dailyFee decimal.Decimal, dueDate, today time.Time) (int, decimal.Decimal) {
	days := policy.DaysOverdue(dueDate, today)
	return days, dailyFee.Mul(decimal.NewFromInt(int64(days)))
}
