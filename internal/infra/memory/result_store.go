package memory

import (
	"context"
	"sort"
	"sync"

	"quizdesk-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) CreateResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *ResultStore) ListResults(_ context.Context) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortNewestFirst(s.results), nil
}

func (s *ResultStore) ListResultsByUser(_ context.Context, userID string) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var own []domain.Result
	for _, r := range s.results {
		if r.UserID == userID {
			own = append(own, r)
		}
	}
	return sortNewestFirst(own), nil
}

func sortNewestFirst(results []domain.Result) []domain.Result {
	out := make([]domain.Result, len(results))
	copy(out, results)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out
}
