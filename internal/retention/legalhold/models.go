package legalhold

import (
	"time"

	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
)

// Hold suspends retention-based deletion for every audit record inside its
// scope. Holds are never deleted; releasing one stamps ReleasedAt, and the
// database trigger permits no other mutation.
type Hold struct {
	ID id.HoldID

	// Scope dimensions. A nil/zero dimension means "unconstrained", so a
	// hold with only an investigation ID blocks everything — deliberately
	// conservative, since under-purging is recoverable and over-purging is
	// not.
	OrgID           *id.OrgID
	Start           *time.Time
	End             *time.Time
	InvestigationID id.InvestigationID

	Reason     string
	CreatedBy  string
	CreatedAt  time.Time
	ReleasedAt *time.Time
}

// Active reports whether the hold still blocks purging at the given instant.
func (h Hold) Active(now time.Time) bool {
	return h.ReleasedAt == nil || h.ReleasedAt.After(now)
}

// Covers reports whether a record with the given org and timestamp falls
// inside the hold's scope.
func (h Hold) Covers(orgID id.OrgID, occurredAt time.Time) bool {
	if h.OrgID != nil && *h.OrgID != orgID {
		return false
	}
	if h.Start != nil && occurredAt.Before(*h.Start) {
		return false
	}
	if h.End != nil && occurredAt.After(*h.End) {
		return false
	}
	return true
}

// CreateRequest describes a new hold.
type CreateRequest struct {
	OrgID           *id.OrgID
	Start           *time.Time
	End             *time.Time
	InvestigationID id.InvestigationID
	Reason          string
}

// Validate enforces that a hold has at least one scope dimension and a
// coherent time range.
func (r CreateRequest) Validate() error {
	if r.OrgID == nil && r.Start == nil && r.End == nil && r.InvestigationID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "legal hold requires at least one scope dimension")
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return dErrors.New(dErrors.CodeInvalidInput, "hold end must not precede start")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	return nil
}
