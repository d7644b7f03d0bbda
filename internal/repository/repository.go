package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/lease-service/internal/models"
	"github.com/Dan9191/lease-service/internal/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrLeaseNotFound is returned when a scoped run names a lease that does not exist or is not active
var ErrLeaseNotFound = errors.New("lease not found or not active")

// Repository provides database operations
type Repository struct {
	db *gorm.DB
}

// NewRepository initializes a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate creates or extends the tables used by the rent engine
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Lease{},
		&models.PaymentSchedule{},
		&models.UnifiedPayment{},
		&models.RunLock{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// uniqueKeys are the indexes the ON CONFLICT writes resolve against
var uniqueKeys = []struct {
	model interface{}
	index string
}{
	{&models.PaymentSchedule{}, "idx_schedule_lease_month"},
	{&models.UnifiedPayment{}, "idx_payment_lease_type_due"},
}

// CheckSchema fails when the tables or unique indexes created by AutoMigrate are missing
func CheckSchema(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable(&models.RunLock{}) {
		return errors.New("missing table engine_run_locks: run `rentctl migrate` first")
	}
	for _, k := range uniqueKeys {
		if !m.HasIndex(k.model, k.index) {
			return fmt.Errorf("missing unique index %s: run `rentctl migrate` first", k.index)
		}
	}
	return nil
}

// ListActiveLeases returns every lease whose status is active
func (r *Repository) ListActiveLeases(ctx context.Context) ([]models.Lease, error) {
	var leases []models.Lease
	err := r.db.WithContext(ctx).
		Where("status = ?", models.LeaseStatusActive).
		Order("agreement_number").
		Find(&leases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active leases: %w", err)
	}
	return leases, nil
}

// GetActiveLease retrieves a single active lease by id
func (r *Repository) GetActiveLease(ctx context.Context, id string) (*models.Lease, error) {
	lease := &models.Lease{}
	err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.LeaseStatusActive).
		First(lease).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLeaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lease: %w", err)
	}
	return lease, nil
}

// ScheduleDueDates returns the month-truncated due dates already scheduled for a lease
func (r *Repository) ScheduleDueDates(ctx context.Context, leaseID string) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.PaymentSchedule{}).
		Where("lease_id = ?", leaseID).
		Order("due_date").
		Pluck("due_date", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payment schedules: %w", err)
	}
	for i, d := range dates {
		dates[i] = utils.StartOfMonth(d)
	}
	return dates, nil
}

// CreateSchedule inserts a payment schedule unless one already exists for the lease and month.
// created is false when the unique (lease_id, due_date) index rejected the row.
func (r *Repository) CreateSchedule(ctx context.Context, schedule *models.PaymentSchedule) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lease_id"}, {Name: "due_date"}},
			DoNothing: true,
		}).
		Create(schedule)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create payment schedule: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// HasIncomeBetween reports whether an Income row for the lease has a payment date in [from, to)
func (r *Repository) HasIncomeBetween(ctx context.Context, leaseID string, from, to time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UnifiedPayment{}).
		Where("lease_id = ? AND type = ? AND payment_date >= ? AND payment_date < ?",
			leaseID, models.PaymentTypeIncome, from, to).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check income: %w", err)
	}
	return count > 0, nil
}

// CreateLateFee inserts a late-fee row unless one already exists for the lease and original due date
func (r *Repository) CreateLateFee(ctx context.Context, fee *models.UnifiedPayment) (bool, error) {
	if fee.Type != models.PaymentTypeLateFee || fee.OriginalDueDate == nil {
		return false, fmt.Errorf("late fee requires type %s and an original due date", models.PaymentTypeLateFee)
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lease_id"}, {Name: "type"}, {Name: "original_due_date"}},
			DoNothing: true,
		}).
		Create(fee)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create late fee: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RaiseLateFeeAccrual moves an unpaid late-fee row forward to days/fee.
// Rows that are already at or beyond days, or have been paid, are left unchanged.
func (r *Repository) RaiseLateFeeAccrual(ctx context.Context, leaseID string, dueDate time.Time, days int, fee decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UnifiedPayment{}).
		Where("lease_id = ? AND type = ? AND original_due_date = ? AND payment_date IS NULL AND days_overdue < ?",
			leaseID, models.PaymentTypeLateFee, dueDate, days).
		Updates(map[string]interface{}{
			"days_overdue":     days,
			"late_fine_amount": fee,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update late fee: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// TryAcquireRunLock takes the named run lock for holder. Locks past their expiry are reclaimed.
func (r *Repository) TryAcquireRunLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	db := r.db.WithContext(ctx)

	if err := db.Where("name = ? AND expires_at < ?", name, now).Delete(&models.RunLock{}).Error; err != nil {
		return false, fmt.Errorf("failed to clear expired run lock: %w", err)
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.RunLock{
		Name:       name,
		Holder:     holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	})
	if res.Error != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReleaseRunLock drops the named run lock if holder still owns it
func (r *Repository) ReleaseRunLock(ctx context.Context, name, holder string) error {
	err := r.db.WithContext(ctx).
		Where("name = ? AND holder = ?", name, holder).
		Delete(&models.RunLock{}).Error
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}
