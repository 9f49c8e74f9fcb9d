package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so host environments don't
// leak into the assertions. envconfig treats a set-but-empty variable
// as present, so the variables must be unset, not blanked.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "DATABASE_PATH",
		"DELIVERY_START_DAY", "DELIVERY_END_DAY",
		"CUTOFF_HOUR", "CUTOFF_MINUTE", "TIMEZONE",
		"RENEWAL_REMINDER_ENABLED", "RENEWAL_REMINDER_TIFFIN_THRESHOLD",
		"RENEWAL_REMINDER_EXCLUDE_TRIAL_MEALS", "RENEWAL_REMINDER_EXCLUDED_PRODUCTS",
		"RENEWAL_LINK_BASE", "RENEWAL_OFFER_TTL", "JOB_CHECK_INTERVAL",
	} {
		if prev, ok := os.LookupEnv(key); ok {
			key, prev := key, prev
			t.Cleanup(func() { os.Setenv(key, prev) })
			os.Unsetenv(key)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "tiffin.db", cfg.DatabasePath)
	assert.Equal(t, 17, cfg.CutoffHour)
	assert.Equal(t, 3, cfg.RenewalReminderThreshold)
	assert.True(t, cfg.RenewalReminderEnabled)
	assert.Equal(t, time.Hour, cfg.JobCheckInterval)

	window, err := cfg.Window()
	require.NoError(t, err)
	assert.Equal(t, time.Monday, window.First())
	assert.Equal(t, time.Friday, window.Last())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DELIVERY_START_DAY", "friday")
	t.Setenv("DELIVERY_END_DAY", "monday")
	t.Setenv("CUTOFF_HOUR", "12")
	t.Setenv("TIMEZONE", "Asia/Kolkata")
	t.Setenv("RENEWAL_REMINDER_TIFFIN_THRESHOLD", "5")
	t.Setenv("RENEWAL_OFFER_TTL", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5, cfg.RenewalReminderThreshold)
	assert.Equal(t, 48*time.Hour, cfg.RenewalOfferTTL)

	window, err := cfg.Window()
	require.NoError(t, err)
	assert.Equal(t, time.Friday, window.First())
	assert.Equal(t, time.Monday, window.Last())

	loc, err := cfg.Location()
	require.NoError(t, err)
	cutoff := cfg.CutoffAt(loc)
	assert.Equal(t, 12, cutoff.Hour)
}

func TestValidate_Rejections(t *testing.T) {
	clearEnv(t)

	t.Run("bad delivery day", func(t *testing.T) {
		t.Setenv("DELIVERY_START_DAY", "funday")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("cutoff hour out of range", func(t *testing.T) {
		t.Setenv("CUTOFF_HOUR", "25")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad timezone", func(t *testing.T) {
		t.Setenv("TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative threshold", func(t *testing.T) {
		t.Setenv("RENEWAL_REMINDER_TIFFIN_THRESHOLD", "-1")
		_, err := Load()
		assert.Error(t, err)
	})
}
