package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"captable/internal/ledger/models"
	id "captable/pkg/domain"
	"captable/pkg/platform/sentinel"
)

// InMemoryStore keeps records in process. Used for tests and the memory backend.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records map[id.TokenID][]models.Record
	now     func() time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[id.TokenID][]models.Record),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Insert(_ context.Context, rec models.Record) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.records[rec.TokenID]
	i := sort.Search(len(existing), func(i int) bool { return existing[i].Seq >= rec.Seq })
	if i < len(existing) && existing[i].Seq == rec.Seq {
		return models.Record{}, fmt.Errorf("token %s seq %d: %w", rec.TokenID, rec.Seq, sentinel.ErrConflict)
	}

	s.nextID++
	rec.ID = s.nextID
	rec.CreatedAt = s.now().UTC()
	rec.Payload = append([]byte(nil), rec.Payload...)

	existing = append(existing, models.Record{})
	copy(existing[i+1:], existing[i:])
	existing[i] = rec
	s.records[rec.TokenID] = existing
	return rec, nil
}

func (s *InMemoryStore) Head(_ context.Context, tokenID id.TokenID) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing := s.records[tokenID]
	if len(existing) == 0 {
		return models.Record{}, sentinel.ErrNotFound
	}
	return existing[len(existing)-1], nil
}

func (s *InMemoryStore) Page(_ context.Context, q Query) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.limit()
	var out []models.Record
	// seq order equals (slot, seq) order because appends never lower the slot.
	for _, rec := range s.records[q.TokenID] {
		if !q.matches(rec) {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) Tokens(_ context.Context) ([]id.TokenID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]id.TokenID, 0, len(s.records))
	for tokenID := range s.records {
		out = append(out, tokenID)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := uuid.UUID(out[i]), uuid.UUID(out[j])
		return a.String() < b.String()
	})
	return out, nil
}
