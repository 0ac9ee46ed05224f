package repository

import (
	"context"
	"sync"

	"rainet_server/internal/domain"
)

// MemoryUserStore backs open-login deployments and tests. Same contract
// as UserRepository, no persistence.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*memUser
}

type memUser struct {
	password string
	rating   int
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*memUser)}
}

func (s *MemoryUserStore) AddUser(_ context.Context, name, password string, rating int) bool {
	if !ValidUserName(name) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; ok {
		return false
	}
	s.users[name] = &memUser{password: password, rating: rating}
	return true
}

func (s *MemoryUserStore) CheckLogin(_ context.Context, name, password string) domain.LoginResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[name]
	if !ok {
		return domain.LoginInvalidUser
	}
	if u.password != password {
		return domain.LoginInvalidPassword
	}
	return domain.LoginOK
}

func (s *MemoryUserStore) MustChangePassword(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.users[name]; !ok {
		return false, ErrUserNotFound
	}
	return false, nil
}

func (s *MemoryUserStore) GetRating(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[name]
	if !ok {
		return 0, ErrUserNotFound
	}
	return u.rating, nil
}

func (s *MemoryUserStore) SetRating(_ context.Context, name string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return ErrUserNotFound
	}
	u.rating = rating
	return nil
}

// Ensure registers a user on first sight. Used by open-login mode where
// any name is accepted.
func (s *MemoryUserStore) Ensure(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; !ok {
		s.users[name] = &memUser{rating: domain.DefaultRating}
	}
}
