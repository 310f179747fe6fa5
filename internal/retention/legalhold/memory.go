package legalhold

import (
	"context"
	"sort"
	"sync"
	"time"

	id "glint/pkg/domain"
	"glint/pkg/platform/sentinel"
)

// InMemoryStore keeps holds in memory for unit tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	holds map[id.HoldID]Hold
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{holds: make(map[id.HoldID]Hold)}
}

func (s *InMemoryStore) Create(_ context.Context, hold *Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.holds[hold.ID]; exists {
		return sentinel.ErrConflict
	}
	s.holds[hold.ID] = *hold
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, holdID id.HoldID) (*Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hold, ok := s.holds[holdID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &hold, nil
}

func (s *InMemoryStore) ListActive(ctx context.Context) ([]Hold, error) {
	return s.list(func(h Hold) bool { return h.ReleasedAt == nil })
}

func (s *InMemoryStore) List(ctx context.Context) ([]Hold, error) {
	return s.list(func(Hold) bool { return true })
}

func (s *InMemoryStore) list(keep func(Hold) bool) ([]Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var holds []Hold
	for _, h := range s.holds {
		if keep(h) {
			holds = append(holds, h)
		}
	}
	sort.Slice(holds, func(i, j int) bool {
		return holds[i].CreatedAt.After(holds[j].CreatedAt)
	})
	return holds, nil
}

func (s *InMemoryStore) Release(_ context.Context, holdID id.HoldID, releasedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold, ok := s.holds[holdID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if hold.ReleasedAt != nil {
		return sentinel.ErrConflict
	}
	hold.ReleasedAt = &releasedAt
	s.holds[holdID] = hold
	return nil
}
