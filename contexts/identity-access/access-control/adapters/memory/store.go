package memory

import (
	"context"
	"strings"
	"sync"

	"ballotproxy/contexts/identity-access/access-control/ports"
)

// Store is a standalone owner slot.
type Store struct {
	mu    sync.RWMutex
	owner string
}

func NewStore(owner string) *Store {
	return &Store{owner: strings.TrimSpace(owner)}
}

func (s *Store) Owner(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner, s.owner != "", nil
}

func (s *Store) SetOwner(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = strings.TrimSpace(owner)
	return nil
}

var _ ports.OwnerStore = (*Store)(nil)
