package credstore

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

// MemoryStore keeps tokens in process memory only.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[AccountContext]oauth2.Token
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[AccountContext]oauth2.Token)}
}

func (s *MemoryStore) Load(_ context.Context, account AccountContext) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, ok := s.tokens[account]
	if !ok {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	return &tok, nil
}

func (s *MemoryStore) Save(_ context.Context, account AccountContext, tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[account] = *tok

	return nil
}

func (s *MemoryStore) Clear(_ context.Context, account AccountContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, account)

	return nil
}
