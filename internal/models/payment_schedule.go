package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const ScheduleStatusPending = "pending"

// PaymentSchedule represents the monthly rent obligation of a lease.
// At most one row exists per lease and calendar month.
type PaymentSchedule struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	LeaseID     string          `json:"lease_id" gorm:"size:36;not null;uniqueIndex:idx_schedule_lease_month,priority:1"`
	DueDate     time.Time       `json:"due_date" gorm:"not null;uniqueIndex:idx_schedule_lease_month,priority:2"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Status      string          `json:"status" gorm:"size:32;not null"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
