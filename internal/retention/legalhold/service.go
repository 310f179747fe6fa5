package legalhold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	id "glint/pkg/domain"
	dErrors "glint/pkg/domain-errors"
	"glint/pkg/platform/sentinel"
	"glint/pkg/requestcontext"
)

// Registry owns legal hold lifecycle and answers the purge job's "is this
// record held" question.
type Registry struct {
	store  Store
	logger *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry constructs the legal hold registry.
func NewRegistry(store Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("legal hold store is required")
	}
	r := &Registry{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Create registers a new hold and returns it.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (*Hold, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	actor := requestcontext.Actor(ctx)
	hold := &Hold{
		ID:              id.NewHoldID(),
		OrgID:           req.OrgID,
		Start:           req.Start,
		End:             req.End,
		InvestigationID: req.InvestigationID,
		Reason:          req.Reason,
		CreatedBy:       actor.ID,
		CreatedAt:       requestcontext.Now(ctx),
	}
	if err := r.store.Create(ctx, hold); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create legal hold")
	}

	r.logger.InfoContext(ctx, "legal hold created",
		"request_id", requestcontext.RequestID(ctx),
		"hold_id", hold.ID,
		"investigation_id", hold.InvestigationID,
		"created_by", hold.CreatedBy,
	)
	return hold, nil
}

// Get returns one hold by ID.
func (r *Registry) Get(ctx context.Context, holdID id.HoldID) (*Hold, error) {
	hold, err := r.store.Get(ctx, holdID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "legal hold not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load legal hold")
	}
	return hold, nil
}

// List returns all holds, newest first, released included.
func (r *Registry) List(ctx context.Context) ([]Hold, error) {
	holds, err := r.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list legal holds")
	}
	return holds, nil
}

// Release stamps released_at on an active hold. A released hold stays on
// record forever; it just stops blocking purges.
func (r *Registry) Release(ctx context.Context, holdID id.HoldID) (*Hold, error) {
	err := r.store.Release(ctx, holdID, requestcontext.Now(ctx))
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "legal hold not found")
	case errors.Is(err, sentinel.ErrConflict):
		return nil, dErrors.New(dErrors.CodeConflict, "legal hold already released")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to release legal hold")
	}

	r.logger.InfoContext(ctx, "legal hold released",
		"request_id", requestcontext.RequestID(ctx),
		"hold_id", holdID,
	)
	return r.Get(ctx, holdID)
}

// IsHeld reports whether any active hold covers a record with the given org
// and timestamp.
func (r *Registry) IsHeld(ctx context.Context, orgID id.OrgID, occurredAt time.Time) (bool, error) {
	set, err := r.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return set.Covers(orgID, occurredAt), nil
}

// Snapshot loads the active holds once so a purge run can evaluate every
// candidate in memory instead of querying per row.
func (r *Registry) Snapshot(ctx context.Context) (HoldSet, error) {
	holds, err := r.store.ListActive(ctx)
	if err != nil {
		return HoldSet{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active legal holds")
	}
	return HoldSet{holds: holds, at: requestcontext.Now(ctx)}, nil
}

// HoldSet is a point-in-time view of the active holds.
type HoldSet struct {
	holds []Hold
	at    time.Time
}

// Covers reports whether any hold in the set covers the record.
func (s HoldSet) Covers(orgID id.OrgID, occurredAt time.Time) bool {
	for _, h := range s.holds {
		if h.Active(s.at) && h.Covers(orgID, occurredAt) {
			return true
		}
	}
	return false
}

// Len reports how many holds were active when the snapshot was taken.
func (s HoldSet) Len() int { return len(s.holds) }
