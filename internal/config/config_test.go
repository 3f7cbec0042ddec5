package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadReadsSyncSettings(t *testing.T) {
	t.Setenv("HUD_COMMUNITIES", " alpha, beta ,,alpha")
	t.Setenv("SYNC_INTERVAL", "90")
	t.Setenv("SYNC_TIMEOUT", "45s")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("RATE_LIMIT_SYNC_TRIGGER_RATE", "0.5")

	cfg := Load()
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Sync.Communities)
	assert.Equal(t, 90*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 45*time.Second, cfg.Sync.Timeout)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 0.5, cfg.RateLimit.SyncTriggerRate)
	assert.Equal(t, 3, cfg.RateLimit.SyncTriggerBurst)
}

func TestGetenvBool(t *testing.T) {
	t.Setenv("FLAG_ON", "yes")
	t.Setenv("FLAG_OFF", "off")
	t.Setenv("FLAG_JUNK", "maybe")

	assert.True(t, getenvBool("FLAG_ON", false))
	assert.False(t, getenvBool("FLAG_OFF", true))
	assert.True(t, getenvBool("FLAG_JUNK", true))
	assert.False(t, getenvBool("FLAG_MISSING", false))
}

func TestAnalyticsConfigDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewAnalyticsConfigHolder(Config{AnalyticsConfigDir: dir}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultAnalyticsConfig(), holder.Get())
}

func TestAnalyticsConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	body := "analytics:\n  window_days: 14\n  cohort_max_months: 12\n  growth_ceiling_pct: 0.9\n  member_ceiling_pct: 0.98\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "analytics.yml"), []byte(body), 0o600))

	holder, err := NewAnalyticsConfigHolder(Config{AnalyticsConfigDir: dir}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, 14, got.WindowDays)
	assert.Equal(t, 12, got.CohortMaxMonths)
	assert.InDelta(t, 0.9, got.GrowthCeilingPct, 1e-9)
	assert.InDelta(t, 0.98, got.MemberCeilingPct, 1e-9)
}

func TestAnalyticsConfigRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	body := "analytics:\n  window_days: 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "analytics.yml"), []byte(body), 0o600))

	_, err := NewAnalyticsConfigHolder(Config{AnalyticsConfigDir: dir}, zap.NewNop())
	assert.Error(t, err)
}

func TestAnalyticsConfigHolderNil(t *testing.T) {
	var holder *AnalyticsConfigHolder
	assert.Equal(t, DefaultAnalyticsConfig(), holder.Get())
}
