package retention

import (
	"time"

	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
)

// TableCounts is the per-category accounting of one purge run. Eligible
// counts every record past retention; held records are excluded (counted,
// not errors); purged is what was actually deleted.
type TableCounts struct {
	Eligible int64 `json:"eligible"`
	Purged   int64 `json:"purged"`
	Held     int64 `json:"held"`
}

// Add accumulates another batch's counts.
func (c *TableCounts) Add(other TableCounts) {
	c.Eligible += other.Eligible
	c.Purged += other.Purged
	c.Held += other.Held
}

// PurgeEvent is the immutable record of one retention run. It is created
// once per run, dry or not, succeeded or aborted, and never mutated.
type PurgeEvent struct {
	ID    id.RunID
	Actor string // always "system"

	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool

	// Policy is the settings snapshot the run executed under.
	Policy map[string]any

	// Counts maps category name to its accounting.
	Counts map[string]TableCounts

	// Aborted is set when the run exhausted batch retries; committed
	// batches stay reflected in Counts.
	Aborted bool
	Error   string
}

// Validate enforces the minimum accounting a purge event needs.
func (e PurgeEvent) Validate() error {
	if e.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "purge event requires a run ID")
	}
	if e.Actor != "system" {
		return dErrors.New(dErrors.CodeInvalidInput, "purge events are system-authored")
	}
	if e.StartedAt.IsZero() || e.FinishedAt.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "purge event requires run timestamps")
	}
	return nil
}
