package memory

import (
	"context"
	"sync"

	"flashduel-service/internal/app"
	"flashduel-service/internal/domain"
)

// UserStore keeps lifetime scores in memory.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

var _ app.UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*domain.User)}
}

func (s *UserStore) AddToTotalScore(_ context.Context, userID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		user = &domain.User{ID: userID}
		s.users[userID] = user
	}
	user.TotalScore += delta
	return nil
}

// TotalScore is a test accessor.
func (s *UserStore) TotalScore(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		return user.TotalScore
	}
	return 0
}
