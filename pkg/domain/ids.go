// Package domain holds the typed identifiers shared across the engine.
// IDs are distinct types over uuid.UUID so an org ID can never be passed
// where a hold ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "glint/pkg/domain-errors"
)

type (
	// OrgID identifies a tenant organization.
	OrgID uuid.UUID
	// RecordID identifies an audit record.
	RecordID uuid.UUID
	// HoldID identifies a legal hold.
	HoldID uuid.UUID
	// RunID identifies a purge job run.
	RunID uuid.UUID
	// InvestigationID identifies an external investigation a hold is scoped to.
	InvestigationID = string
)

func (id OrgID) String() string    { return uuid.UUID(id).String() }
func (id RecordID) String() string { return uuid.UUID(id).String() }
func (id HoldID) String() string   { return uuid.UUID(id).String() }
func (id RunID) String() string    { return uuid.UUID(id).String() }

func (id OrgID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id HoldID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RunID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// PlatformOrgID is the reserved tenant for platform-level operator actions
// (legal hold management, retention changes) that have no customer org of
// their own. Audit records still need an org to be queryable.
var PlatformOrgID = OrgID(uuid.MustParse("00000000-0000-0000-0000-000000000001"))

// NewRecordID mints a fresh audit record identifier.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

// NewHoldID mints a fresh legal hold identifier.
func NewHoldID() HoldID { return HoldID(uuid.New()) }

// NewRunID mints a fresh purge run identifier.
func NewRunID() RunID { return RunID(uuid.New()) }

// ParseOrgID parses and validates an org ID from its string form.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID(s, "org_id")
	return OrgID(u), err
}

// ParseRecordID parses and validates an audit record ID from its string form.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record_id")
	return RecordID(u), err
}

// ParseHoldID parses and validates a legal hold ID from its string form.
func ParseHoldID(s string) (HoldID, error) {
	u, err := parseUUID(s, "hold_id")
	return HoldID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be the nil UUID")
	}
	return u, nil
}
