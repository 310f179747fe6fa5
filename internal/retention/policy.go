// Package retention holds the policy table and purge-run accounting for the
// audit log. The purge job itself lives in the purge subpackage; legal holds
// in legalhold.
package retention

import (
	"time"

	"glint/internal/audit"
	"glint/internal/platform/config"
)

// Settings keys reported in policy snapshots. These names are shared with
// the host application's configuration surface.
const (
	SettingApplicationLogDays = "retention_application_log_days"
	SettingAnalyticsEventDays = "retention_analytics_event_days"
	SettingSoftDeletedDays    = "retention_soft_deleted_days"
	SettingAuditLogDays       = "retention_audit_log_days"
	SettingDryRun             = "audit_retention_dry_run"
)

// Policy maps each audit category to its retention window. A window of zero
// days disables purging for that category entirely.
type Policy struct {
	days   map[audit.Category]int
	dryRun bool

	// Raw settings kept so every snapshot records the full configuration
	// the run executed under, not just the categories it touched.
	applicationLogDays int
	analyticsEventDays int
	softDeletedDays    int
	auditLogDays       int
}

// FromConfig derives the policy from retention settings. Compliance-critical
// categories (admin, config) keep the full audit retention; feature flag
// toggles age out with application logs and integration lifecycle events
// with analytics data.
func FromConfig(cfg config.RetentionConfig) Policy {
	return Policy{
		days: map[audit.Category]int{
			audit.CategoryAdmin:       cfg.AuditLogDays,
			audit.CategoryConfig:      cfg.AuditLogDays,
			audit.CategoryFeatureFlag: cfg.ApplicationLogDays,
			audit.CategoryIntegration: cfg.AnalyticsEventDays,
		},
		dryRun:             cfg.DryRun,
		applicationLogDays: cfg.ApplicationLogDays,
		analyticsEventDays: cfg.AnalyticsEventDays,
		softDeletedDays:    cfg.SoftDeletedDays,
		auditLogDays:       cfg.AuditLogDays,
	}
}

// NewPolicy builds a policy from an explicit per-category table; test and
// manual-trigger convenience.
func NewPolicy(days map[audit.Category]int, dryRun bool) Policy {
	copied := make(map[audit.Category]int, len(days))
	for category, d := range days {
		copied[category] = d
	}
	return Policy{days: copied, dryRun: dryRun}
}

// Days returns the retention window for a category; zero disables purging.
func (p Policy) Days(category audit.Category) int {
	return p.days[category]
}

// Cutoff returns the instant before which records of the category have
// outlived their retention. The zero time means the category is never
// purged.
func (p Policy) Cutoff(category audit.Category, now time.Time) time.Time {
	days := p.Days(category)
	if days <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days)
}

// DryRun reports whether purge runs should count without deleting.
func (p Policy) DryRun() bool { return p.dryRun }

// WithDryRun returns a copy of the policy with the dry-run flag overridden;
// used by the manual trigger endpoint.
func (p Policy) WithDryRun(dryRun bool) Policy {
	p.dryRun = dryRun
	return p
}

// Snapshot captures the full settings table for a PurgeEvent.
func (p Policy) Snapshot() map[string]any {
	snapshot := map[string]any{
		SettingDryRun: p.dryRun,
	}
	if p.applicationLogDays != 0 || p.analyticsEventDays != 0 || p.softDeletedDays != 0 || p.auditLogDays != 0 {
		snapshot[SettingApplicationLogDays] = p.applicationLogDays
		snapshot[SettingAnalyticsEventDays] = p.analyticsEventDays
		snapshot[SettingSoftDeletedDays] = p.softDeletedDays
		snapshot[SettingAuditLogDays] = p.auditLogDays
	}
	for category, days := range p.days {
		snapshot["retention_"+string(category)+"_days"] = days
	}
	return snapshot
}
