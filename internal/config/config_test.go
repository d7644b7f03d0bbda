package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "120", cfg.DefaultDailyLateFee.String())
	assert.Equal(t, 30, cfg.HistoricalOverdueDays)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, "generate_missing_payment_records", cfg.ReconcileProcedure)
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("DEFAULT_DAILY_LATE_FEE", "95.50")
	t.Setenv("ENGINE_WORKERS", "8")
	t.Setenv("STORE_TIMEOUT", "3s")
	t.Setenv("TIMEZONE", "Africa/Nairobi")
	t.Setenv("RECONCILE_PROCEDURE", "billing.fill_gaps")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "95.5", cfg.DefaultDailyLateFee.String())
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "Africa/Nairobi", cfg.Location.String())
	assert.Equal(t, "billing.fill_gaps", cfg.ReconcileProcedure)
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"empty db conn", "DB_CONN", ""},
		{"bad fee", "DEFAULT_DAILY_LATE_FEE", "abc"},
		{"negative fee", "DEFAULT_DAILY_LATE_FEE", "-1"},
		{"zero workers", "ENGINE_WORKERS", "0"},
		{"bad timeout", "STORE_TIMEOUT", "soon"},
		{"bad timezone", "TIMEZONE", "Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}
