package store

import (
	"context"
	"sort"
	"sync"

	"glint/internal/retention"
)

// InMemoryEventStore keeps purge events in memory for unit tests.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events []retention.PurgeEvent
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{}
}

func (s *InMemoryEventStore) AppendEvent(_ context.Context, event *retention.PurgeEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *InMemoryEventStore) ListEvents(_ context.Context, limit, offset int) ([]retention.PurgeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := make([]retention.PurgeEvent, len(s.events))
	copy(sorted, s.events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.After(sorted[j].StartedAt)
	})

	if offset >= len(sorted) {
		return nil, nil
	}
	sorted = sorted[offset:]
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (s *InMemoryEventStore) LastSuccess(_ context.Context) (retention.PurgeEvent, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		last  retention.PurgeEvent
		found bool
	)
	for _, e := range s.events {
		if e.Aborted {
			continue
		}
		if !found || e.FinishedAt.After(last.FinishedAt) {
			last = e
			found = true
		}
	}
	return last, found, nil
}
