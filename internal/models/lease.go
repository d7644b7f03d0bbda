package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const LeaseStatusActive = "active"

// Lease represents a vehicle lease agreement. The rent engine only reads it.
type Lease struct {
	ID              string              `json:"id" gorm:"primaryKey;size:36"`
	AgreementNumber string              `json:"agreement_number" gorm:"size:64"`
	RentAmount      decimal.Decimal     `json:"rent_amount" gorm:"type:numeric(12,2);not null"`
	StartDate       *time.Time          `json:"start_date" gorm:"type:date"`
	DailyLateFee    decimal.NullDecimal `json:"daily_late_fee" gorm:"type:numeric(12,2)"`
	Status          string              `json:"status" gorm:"size:32;index"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (Lease) TableName() string {
	return "agreements"
}

// EffectiveDailyLateFee returns the lease's daily late fee, or fallback when it is unset or not positive
func (l *Lease) EffectiveDailyLateFee(fallback decimal.Decimal) decimal.Decimal {
	if l.DailyLateFee.Valid && l.DailyLateFee.Decimal.IsPositive() {
		return l.DailyLateFee.Decimal
	}
	return fallback
}

// HasValidStartDate reports whether the lease can be scheduled at all
func (l *Lease) HasValidStartDate() bool {
	return l.StartDate != nil && !l.StartDate.IsZero()
}
