package retention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"glint/internal/audit"
	"glint/internal/platform/config"
)

func TestFromConfig_CategoryWindows(t *testing.T) {
	cfg := config.RetentionConfig{
		ApplicationLogDays: 90,
		AnalyticsEventDays: 180,
		SoftDeletedDays:    30,
		AuditLogDays:       2555,
		DryRun:             true,
	}
	p := FromConfig(cfg)

	assert.Equal(t, 2555, p.Days(audit.CategoryAdmin))
	assert.Equal(t, 2555, p.Days(audit.CategoryConfig))
	assert.Equal(t, 90, p.Days(audit.CategoryFeatureFlag))
	assert.Equal(t, 180, p.Days(audit.CategoryIntegration))
	assert.True(t, p.DryRun())
}

func TestCutoff(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	p := NewPolicy(map[audit.Category]int{
		audit.CategoryConfig: 30,
	}, false)

	t.Run("subtracts the retention window", func(t *testing.T) {
		want := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, want, p.Cutoff(audit.CategoryConfig, now))
	})

	t.Run("zero days disables purging", func(t *testing.T) {
		assert.True(t, p.Cutoff(audit.CategoryAdmin, now).IsZero())
	})
}

func TestSnapshot_RecordsSettingsAndDryRun(t *testing.T) {
	p := FromConfig(config.RetentionConfig{
		ApplicationLogDays: 90,
		AnalyticsEventDays: 180,
		SoftDeletedDays:    30,
		AuditLogDays:       2555,
	})

	snapshot := p.Snapshot()
	assert.Equal(t, false, snapshot[SettingDryRun])
	assert.Equal(t, 2555, snapshot[SettingAuditLogDays])
	assert.Equal(t, 30, snapshot[SettingSoftDeletedDays])
	assert.Equal(t, 2555, snapshot["retention_admin_days"])
	assert.Equal(t, 90, snapshot["retention_feature_flag_days"])
}

func TestWithDryRun_DoesNotMutateOriginal(t *testing.T) {
	p := NewPolicy(map[audit.Category]int{audit.CategoryAdmin: 10}, false)
	dry := p.WithDryRun(true)

	assert.True(t, dry.DryRun())
	assert.False(t, p.DryRun())
	assert.Equal(t, 10, dry.Days(audit.CategoryAdmin))
}
