package snapshotcache

import (
	"context"
	"sort"
	"sync"

	"captable/internal/ledger/models"
	"captable/internal/projector"
	id "captable/pkg/domain"
	"captable/pkg/platform/sentinel"
)

type memoryCheckpoint struct {
	pos models.Position
	raw []byte
}

// InMemoryStore keeps encoded checkpoints per token, ordered by position.
// Entries are stored encoded so callers never share state.
type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[id.TokenID][]memoryCheckpoint
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[id.TokenID][]memoryCheckpoint)}
}

func before(a, b models.Position) bool {
	if a.Slot != b.Slot {
		return a.Slot < b.Slot
	}
	return a.Seq < b.Seq
}

func (s *InMemoryStore) Save(_ context.Context, st *projector.State) error {
	raw, err := encode(st)
	if err != nil {
		return err
	}
	cp := memoryCheckpoint{pos: st.Position(), raw: raw}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.tokens[st.TokenID]
	i := sort.Search(len(list), func(i int) bool { return !before(list[i].pos, cp.pos) })
	if i < len(list) && list[i].pos == cp.pos {
		list[i] = cp
		return nil
	}
	list = append(list, memoryCheckpoint{})
	copy(list[i+1:], list[i:])
	list[i] = cp
	s.tokens[st.TokenID] = list
	return nil
}

func (s *InMemoryStore) Nearest(_ context.Context, tokenID id.TokenID, target int64) (*projector.State, error) {
	s.mu.RLock()
	list := s.tokens[tokenID]
	i := sort.Search(len(list), func(i int) bool { return list[i].pos.Slot > target })
	var raw []byte
	if i > 0 {
		raw = list[i-1].raw
	}
	s.mu.RUnlock()

	if raw == nil {
		return nil, sentinel.ErrNotFound
	}
	return decode(raw)
}

func (s *InMemoryStore) Drop(_ context.Context, tokenID id.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tokenID)
	return nil
}

// Len reports how many checkpoints the token has.
func (s *InMemoryStore) Len(tokenID id.TokenID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens[tokenID])
}
