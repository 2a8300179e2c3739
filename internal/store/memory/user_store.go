// Package memory implements the domain store interfaces with in-process maps.
// The core assumes a single-process, in-memory representation of state;
// durability is owned by the surrounding service, not by this package.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/traveltrust/trustd/internal/domain"
)

// UserStore keeps users in memory, keyed by ID with an email index.
type UserStore struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	byEmail map[string]string
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

// Create inserts a new user. The stored role is immutable afterwards: no
// method on this store can change it.
func (s *UserStore) Create(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("memory: user %s: %w", user.ID, domain.ErrAlreadyExists)
	}
	email := strings.ToLower(user.Email)
	if _, ok := s.byEmail[email]; ok {
		return fmt.Errorf("memory: user email %s: %w", user.Email, domain.ErrAlreadyExists)
	}
	s.users[user.ID] = user
	s.byEmail[email] = user.ID
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("memory: user %s: %w", id, domain.ErrNotFound)
	}
	return user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, fmt.Errorf("memory: user email %s: %w", email, domain.ErrNotFound)
	}
	return s.users[id], nil
}

// SetKYCStatus updates the verification status and returns the updated user.
func (s *UserStore) SetKYCStatus(ctx context.Context, id string, status domain.KYCStatus) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("memory: user %s: %w", id, domain.ErrNotFound)
	}
	user.KYCStatus = status
	s.users[id] = user
	return user, nil
}

// Compile-time interface check.
var _ domain.UserStore = (*UserStore)(nil)
