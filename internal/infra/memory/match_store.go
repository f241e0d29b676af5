package memory

import (
	"context"
	"sort"
	"sync"

	"flashduel-service/internal/app"
	"flashduel-service/internal/domain"
)

// MatchStore is an in-memory implementation of app.MatchRepository with the
// same conditional-write semantics as the Postgres store: every successful
// write bumps the version, and a stale version loses with ErrVersionConflict.
type MatchStore struct {
	mu      sync.RWMutex
	matches map[string]*domain.Match
}

var _ app.MatchRepository = (*MatchStore)(nil)

func NewMatchStore() *MatchStore {
	return &MatchStore{matches: make(map[string]*domain.Match)}
}

func (s *MatchStore) Create(_ context.Context, match *domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[match.ID] = match.Clone()
	return nil
}

func (s *MatchStore) Get(_ context.Context, matchID string) (*domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[matchID]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	return match.Clone(), nil
}

func (s *MatchStore) UpdateConditional(_ context.Context, match *domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.matches[match.ID]
	if !ok {
		return domain.ErrMatchNotFound
	}
	if current.Version != match.Version {
		return domain.ErrVersionConflict
	}
	match.Version++
	s.matches[match.ID] = match.Clone()
	return nil
}

func (s *MatchStore) ListByStatus(_ context.Context, statuses ...domain.MatchStatus) ([]*domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Match
	for _, match := range s.matches {
		for _, status := range statuses {
			if match.Status == status {
				out = append(out, match.Clone())
				break
			}
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MatchStore) ListByPlayer(_ context.Context, userID string, status domain.MatchStatus) ([]*domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Match
	for _, match := range s.matches {
		if match.Status != status {
			continue
		}
		for _, player := range match.Players {
			if player == userID {
				out = append(out, match.Clone())
				break
			}
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(matches []*domain.Match) {
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
}
