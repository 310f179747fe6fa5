package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"glint/internal/audit"
	id "glint/pkg/domain"
)

// InMemoryStore keeps audit records in memory for unit tests and local
// development. It enforces the same append-only contract as Postgres: no
// update method exists and Purge demands a valid token.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []audit.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *record)
	return nil
}

func (s *InMemoryStore) Query(_ context.Context, q audit.Query) ([]audit.Record, error) {
	q.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []audit.Record
	for _, r := range s.records {
		if matches(r, q) {
			matched = append(matched, r)
		}
	}

	// Newest first with an ID tiebreak, matching the Postgres ordering
	// (occurred_at DESC, id DESC) so both stores paginate identically.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].ID.String() > matched[j].ID.String()
		}
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	if q.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[q.Offset:]
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *InMemoryStore) ScanExpired(_ context.Context, category audit.Category, cutoff time.Time, after Cursor, limit int) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []audit.Record
	for _, r := range s.records {
		if r.Category != category || !r.OccurredAt.Before(cutoff) {
			continue
		}
		if !after.Zero() && !afterCursor(r, after) {
			continue
		}
		expired = append(expired, r)
	}

	sort.Slice(expired, func(i, j int) bool {
		if expired[i].OccurredAt.Equal(expired[j].OccurredAt) {
			return expired[i].ID.String() < expired[j].ID.String()
		}
		return expired[i].OccurredAt.Before(expired[j].OccurredAt)
	})

	if len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (s *InMemoryStore) Purge(_ context.Context, token PurgeToken, ids []id.RecordID) (int64, error) {
	if !token.Valid() {
		return 0, errInvalidPurgeToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := make(map[id.RecordID]struct{}, len(ids))
	for _, rid := range ids {
		doomed[rid] = struct{}{}
	}

	var kept []audit.Record
	var purged int64
	for _, r := range s.records {
		if _, ok := doomed[r.ID]; ok {
			purged++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return purged, nil
}

// Rewind truncates the store back to n records; test helper that lets a
// fake transaction runner model rollback.
func (s *InMemoryStore) Rewind(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < len(s.records) {
		s.records = s.records[:n]
	}
}

// Len reports the number of stored records; test helper.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matches(r audit.Record, q audit.Query) bool {
	if !q.OrgID.IsNil() && r.OrgID != q.OrgID {
		return false
	}
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	if q.FlagKey != "" && r.FlagKey != q.FlagKey {
		return false
	}
	if q.IntegrationType != "" && r.IntegrationType != q.IntegrationType {
		return false
	}
	if !q.Start.IsZero() && r.OccurredAt.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.OccurredAt.After(q.End) {
		return false
	}
	return true
}

func afterCursor(r audit.Record, c Cursor) bool {
	if r.OccurredAt.After(c.OccurredAt) {
		return true
	}
	return r.OccurredAt.Equal(c.OccurredAt) && r.ID.String() > c.ID.String()
}
