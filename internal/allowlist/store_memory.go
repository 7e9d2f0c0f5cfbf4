package allowlist

import (
	"context"
	"errors"
	"sync"

	id "captable/pkg/domain"
	"captable/pkg/requestcontext"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.TokenID]map[string]Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.TokenID]map[string]Entry)}
}

func (s *InMemoryStore) Add(_ context.Context, entry Entry) error {
	if entry.Wallet == "" {
		return errors.New("allowlist entry wallet is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byWallet, ok := s.entries[entry.TokenID]
	if !ok {
		byWallet = make(map[string]Entry)
		s.entries[entry.TokenID] = byWallet
	}
	byWallet[entry.Wallet] = entry
	return nil
}

func (s *InMemoryStore) Remove(_ context.Context, tokenID id.TokenID, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries[tokenID], wallet)
	return nil
}

func (s *InMemoryStore) IsAllowed(ctx context.Context, tokenID id.TokenID, wallet string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[tokenID][wallet]
	return ok && e.ActiveAt(requestcontext.Now(ctx)), nil
}

func (s *InMemoryStore) Allowed(ctx context.Context, tokenID id.TokenID, wallets []string) (map[string]bool, error) {
	now := requestcontext.Now(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(wallets))
	for _, w := range wallets {
		e, ok := s.entries[tokenID][w]
		out[w] = ok && e.ActiveAt(now)
	}
	return out, nil
}
