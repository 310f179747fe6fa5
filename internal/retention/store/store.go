// Package store persists purge events. Append-only like the audit log: runs
// are recorded once and never touched again.
package store

import (
	"context"

	"glint/internal/retention"
)

// EventStore is the purge event persistence contract.
type EventStore interface {
	// AppendEvent records a finished run.
	AppendEvent(ctx context.Context, event *retention.PurgeEvent) error

	// ListEvents returns purge events newest first, paginated.
	ListEvents(ctx context.Context, limit, offset int) ([]retention.PurgeEvent, error)

	// LastSuccess returns the finish time of the most recent non-aborted
	// run, or the zero time when none exists. The scheduler consults it to
	// skip redundant runs.
	LastSuccess(ctx context.Context) (retention.PurgeEvent, bool, error)
}
