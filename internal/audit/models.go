package audit

import (
	"time"

	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
)

// Category classifies audit records by the surface that produced them.
// Each category has its own retention policy and purge cadence.
type Category string

const (
	// CategoryAdmin covers privileged actions taken by staff or operators:
	// team changes, role grants, manual data fixes, legal hold management.
	CategoryAdmin Category = "admin"

	// CategoryConfig covers changes to org-level configuration: pricing
	// rules, service areas, notification settings.
	CategoryConfig Category = "config"

	// CategoryFeatureFlag covers flag creation, toggling, and targeting
	// changes. FlagKey is set on these records.
	CategoryFeatureFlag Category = "feature_flag"

	// CategoryIntegration covers third-party integration lifecycle events:
	// connect, disconnect, credential rotation. IntegrationType is set on
	// these records.
	CategoryIntegration Category = "integration"
)

// Categories lists every audit category in a stable order. The purge job
// iterates this slice so new categories are picked up automatically.
var Categories = []Category{
	CategoryAdmin,
	CategoryConfig,
	CategoryFeatureFlag,
	CategoryIntegration,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryAdmin, CategoryConfig, CategoryFeatureFlag, CategoryIntegration:
		return true
	}
	return false
}

// Record is one immutable audit row. Once appended it is never updated, and
// only the retention purge job may delete it.
type Record struct {
	ID         id.RecordID
	Category   Category
	OccurredAt time.Time

	ActorType  string
	ActorID    string
	ActorRole  string
	AuthMethod string

	OrgID        id.OrgID
	ResourceType string
	ResourceID   string
	Action       string

	// BeforeState and AfterState hold the redacted JSON snapshots of the
	// mutated resource. They are redacted before they ever reach a store.
	BeforeState map[string]any
	AfterState  map[string]any

	// FlagKey is set for feature_flag records, IntegrationType for
	// integration records. Both are query filters on the compliance API.
	FlagKey         string
	IntegrationType string

	RequestID string

	// ClientIP and UserAgent carry the caller's network metadata, captured
	// by the HTTP middleware. UserAgent is the condensed summary, not the
	// raw header.
	ClientIP  string
	UserAgent string
}

// Entry is the caller-facing description of a mutation to be audited. The
// service fills in identity, timestamps, and redaction.
type Entry struct {
	Category        Category
	OrgID           id.OrgID
	ResourceType    string
	ResourceID      string
	Action          string
	BeforeState     map[string]any
	AfterState      map[string]any
	FlagKey         string
	IntegrationType string
}

// Validate enforces the minimum an audit entry needs to be attributable.
func (e Entry) Validate() error {
	if !e.Category.Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown audit category")
	}
	if e.OrgID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "org_id is required")
	}
	if e.Action == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "action is required")
	}
	if e.ResourceType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "resource_type is required")
	}
	return nil
}

// Query narrows an audit listing. Zero values mean "no filter".
type Query struct {
	OrgID           id.OrgID
	Category        Category
	FlagKey         string
	IntegrationType string
	Start           time.Time
	End             time.Time
	Limit           int
	Offset          int
}

// DefaultQueryLimit bounds unpaginated listings.
const DefaultQueryLimit = 100

// MaxQueryLimit is the hard ceiling a caller can request per page.
const MaxQueryLimit = 1000

// Normalize clamps pagination to sane bounds.
func (q *Query) Normalize() {
	if q.Limit <= 0 {
		q.Limit = DefaultQueryLimit
	}
	if q.Limit > MaxQueryLimit {
		q.Limit = MaxQueryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}
