package legalhold

import (
	"context"
	"time"

	id "glint/pkg/domain"
)

// Store is the legal hold persistence contract. There is no delete and no
// generic update: a hold is created once and released at most once.
type Store interface {
	Create(ctx context.Context, hold *Hold) error
	Get(ctx context.Context, holdID id.HoldID) (*Hold, error)

	// ListActive returns every hold not yet released, newest first.
	ListActive(ctx context.Context) ([]Hold, error)

	// List returns all holds, released included, newest first.
	List(ctx context.Context) ([]Hold, error)

	// Release stamps released_at. Returns sentinel.ErrNotFound for unknown
	// holds and sentinel.ErrConflict when already released.
	Release(ctx context.Context, holdID id.HoldID, releasedAt time.Time) error
}
