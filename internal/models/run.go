package models

import "time"

// RunLock is the store-side guard against overlapping engine runs
type RunLock struct {
	Name       string    `gorm:"primaryKey;size:64"`
	Holder     string    `gorm:"size:64;not null"`
	AcquiredAt time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null"`
}

func (RunLock) TableName() string {
	return "engine_run_locks"
}

// RunSummary is the synchronous result of a rent engine run
type RunSummary struct {
	RunID                      string       `json:"run_id"`
	Success                    bool         `json:"success"`
	AsOf                       string       `json:"as_of"` // Format: YYYY-MM-DD
	AgreementsProcessed        int          `json:"agreements_processed"`
	AgreementsSkipped          int          `json:"agreements_skipped"`
	SchedulesCreated           int          `json:"schedules_created"`
	HistoricalSchedulesCreated int          `json:"historical_schedules_created"`
	LateFeesProcessed          int          `json:"late_fees_processed"`
	Error                      string       `json:"error,omitempty"`
	Failures                   []RunFailure `json:"failures,omitempty"`
	StartedAt                  time.Time    `json:"started_at"`
	FinishedAt                 time.Time    `json:"finished_at"`
}

// RunFailure describes a per-lease write that was skipped
type RunFailure struct {
	LeaseID         string `json:"lease_id"`
	AgreementNumber string `json:"agreement_number"`
	Month           string `json:"month,omitempty"` // Format: YYYY-MM
	Operation       string `json:"operation"`
	Message         string `json:"message"`
}
