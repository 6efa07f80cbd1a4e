package memory

import (
	"context"
	"sync"

	"quizdesk-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore, used in demo
// mode and tests. Username and email uniqueness mirrors the document store's
// unique indexes.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byName  map[string]string
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]domain.User),
		byName:  make(map[string]string),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[user.Username]; ok {
		return domain.ErrConflict
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return domain.ErrConflict
	}
	s.byID[user.ID] = user
	s.byName[user.Username] = user.ID
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *UserStore) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[username]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *UserStore) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (s *UserStore) GetUsers(_ context.Context, ids []string) (map[string]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if user, ok := s.byID[id]; ok {
			users[id] = user
		}
	}
	return users, nil
}
