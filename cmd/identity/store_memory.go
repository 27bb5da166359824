package identity

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	hasher Hasher

	mu         sync.RWMutex
	byID       map[string]userRow
	byEmail    map[string]string // email_norm -> id
	byUsername map[string]string // username_norm -> id
}

// NewMemoryStore returns an empty MemoryStore hashing with h.
func NewMemoryStore(h Hasher) *MemoryStore {
	return &MemoryStore{
		hasher:     h,
		byID:       make(map[string]userRow),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

// CreateUser implements Store. Email is checked before username.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	row, err := prepareUser(op, s.hasher, in)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[row.EmailNorm]; ok {
		return User{}, ConflictError{Op: op, Field: "email"}
	}
	if _, ok := s.byUsername[row.UsernameNorm]; ok {
		return User{}, ConflictError{Op: op, Field: "username"}
	}

	s.byID[row.ID] = row
	s.byEmail[row.EmailNorm] = row.ID
	s.byUsername[row.UsernameNorm] = row.ID

	return row.User, nil
}

// GetUserAuthByEmail implements Store.
func (s *MemoryStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	const op = "identity.GetUserAuthByEmail"

	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}
	row := s.byID[id]
	return UserAuth{User: row.User, PasswordHash: row.PasswordHash}, nil
}

// GetUserByID implements Store.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return row.User, nil
}
