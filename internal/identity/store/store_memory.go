package store

import (
	"context"
	"sync"

	"lumine/internal/identity/models"
	"lumine/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

func NewInMemoryStore(profiles ...models.Profile) *InMemoryStore {
	s := &InMemoryStore{profiles: make(map[string]models.Profile, len(profiles))}
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	return s
}

func (s *InMemoryStore) FindProfile(_ context.Context, userID string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return models.Profile{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *InMemoryStore) Save(_ context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}
