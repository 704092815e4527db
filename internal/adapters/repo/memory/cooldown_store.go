package memory

import (
	"context"
	"sync"

	"github.com/bnema/engagement-accounts-cli/internal/domain"
	"github.com/bnema/engagement-accounts-cli/internal/ports"
)

type CooldownStore struct {
	mu      sync.RWMutex
	entries map[domain.UserID]domain.CooldownEntry
}

var _ ports.CooldownStore = (*CooldownStore)(nil)

func NewCooldownStore() *CooldownStore {
	return &CooldownStore{entries: map[domain.UserID]domain.CooldownEntry{}}
}

func (s *CooldownStore) Get(ctx context.Context, user domain.UserID) (domain.CooldownEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.CooldownEntry{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[user]
	if !ok {
		return domain.CooldownEntry{UserID: user}, nil
	}
	return entry, nil
}

func (s *CooldownStore) Put(ctx context.Context, entry domain.CooldownEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.UserID] = entry
	return nil
}
