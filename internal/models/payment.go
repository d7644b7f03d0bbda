package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unified payment types. The rent engine writes only PaymentTypeLateFee.
const (
	PaymentTypeIncome  = "Income"
	PaymentTypeLateFee = "LATE_PAYMENT_FEE"
)

// UnifiedPayment is a row of the polymorphic payment ledger.
// Late-fee rows are keyed by (lease, type, original due date).
type UnifiedPayment struct {
	ID              string          `json:"id" gorm:"primaryKey;size:36"`
	LeaseID         string          `json:"lease_id" gorm:"size:36;not null;uniqueIndex:idx_payment_lease_type_due,priority:1;index:idx_payment_lease_date,priority:1"`
	Type            string          `json:"type" gorm:"size:32;not null;uniqueIndex:idx_payment_lease_type_due,priority:2"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	AmountPaid      decimal.Decimal `json:"amount_paid" gorm:"type:numeric(12,2);not null"`
	Balance         decimal.Decimal `json:"balance" gorm:"type:numeric(12,2);not null"`
	PaymentDate     *time.Time      `json:"payment_date" gorm:"index:idx_payment_lease_date,priority:2"`
	LateFineAmount  decimal.Decimal `json:"late_fine_amount" gorm:"type:numeric(12,2);not null"`
	DaysOverdue     int             `json:"days_overdue" gorm:"not null;default:0"`
	OriginalDueDate *time.Time      `json:"original_due_date" gorm:"uniqueIndex:idx_payment_lease_type_due,priority:3"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
