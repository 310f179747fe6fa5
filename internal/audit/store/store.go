// Package store persists audit records. The API is deliberately append-only:
// there is no update method at all, and deletion requires a purge token that
// only the retention job mints. Postgres adds a trigger underneath so neither
// layer is a single point of failure for immutability.
package store

import (
	"context"
	"fmt"
	"time"

	"glint/internal/audit"
	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
	"glint/pkg/platform/sentinel"
)

// errInvalidPurgeToken is returned when deletion is attempted without a
// run-scoped capability. It wraps sentinel.ErrImmutable so callers can treat
// it as an immutability violation.
var errInvalidPurgeToken = fmt.Errorf("%w: purge requires a run-scoped token", sentinel.ErrImmutable)

// PurgeToken is the capability required to delete audit rows. The zero value
// is invalid; only purge.Runner mints usable tokens, scoped to a single run.
type PurgeToken struct {
	runID id.RunID
}

// MintPurgeToken creates a purge capability bound to a run. Callers outside
// the retention job have no run ID to bind, which keeps the privileged path
// explicit and auditable.
func MintPurgeToken(runID id.RunID) (PurgeToken, error) {
	if runID.IsNil() {
		return PurgeToken{}, dErrors.New(dErrors.CodeInvalidInput, "purge token requires a run ID")
	}
	return PurgeToken{runID: runID}, nil
}

// RunID returns the purge run this token is bound to.
func (t PurgeToken) RunID() id.RunID { return t.runID }

// Valid reports whether the token was minted through MintPurgeToken.
func (t PurgeToken) Valid() bool { return !t.runID.IsNil() }

// Cursor is an (occurred_at, id) position in the expired-record scan. The
// purge job advances it past held records so a scan always terminates.
type Cursor struct {
	OccurredAt time.Time
	ID         id.RecordID
}

// Zero reports whether the cursor is at the start of the scan.
func (c Cursor) Zero() bool { return c.OccurredAt.IsZero() && c.ID.IsNil() }

// Store is the audit record persistence contract.
type Store interface {
	// Append inserts an immutable record. When a transaction is present in
	// ctx (pkg/platform/tx) the insert joins it, which is how the
	// write-through interceptor gets its single commit boundary.
	Append(ctx context.Context, record *audit.Record) error

	// Query returns records matching q, newest first, paginated.
	Query(ctx context.Context, q audit.Query) ([]audit.Record, error)

	// ScanExpired returns up to limit records of the category that occurred
	// strictly before cutoff, oldest first, starting after the cursor.
	ScanExpired(ctx context.Context, category audit.Category, cutoff time.Time, after Cursor, limit int) ([]audit.Record, error)

	// Purge deletes the given records. It is the only deletion path and
	// requires a valid token; anything else gets sentinel.ErrImmutable.
	Purge(ctx context.Context, token PurgeToken, ids []id.RecordID) (int64, error)
}
