package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"captable/pkg/platform/sentinel"
)

// InMemoryStore keeps entries in insertion order.
type InMemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *InMemoryStore) FetchUnprocessed(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.ProcessedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkProcessed(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			t := at
			s.entries[i].ProcessedAt = &t
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// Pending counts unprocessed entries.
func (s *InMemoryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.ProcessedAt == nil {
			n++
		}
	}
	return n
}
