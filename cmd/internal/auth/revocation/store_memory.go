package revocation

import (
	"context"
	"sync"
	"time"

	"blog/cmd/security/token"
)

type refreshSet struct {
	expiresAt time.Time
	members   map[string]struct{}
}

// MemoryStore is a single-process Store backed by mutex-guarded maps.
type MemoryStore struct {
	now func() time.Time

	mu        sync.RWMutex
	blacklist map[string]time.Time // fingerprint -> expires_at
	sets      map[string]*refreshSet
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts ...Option) (*MemoryStore, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{
		now:       cfg.now,
		blacklist: make(map[string]time.Time),
		sets:      make(map[string]*refreshSet),
	}, nil
}

// Blacklist implements Store.
func (s *MemoryStore) Blacklist(ctx context.Context, tok string, ttl time.Duration) error {
	const op = "revocation.Blacklist"

	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := ctx.Err(); err != nil {
		return unavailable(op, err)
	}
	key := token.Fingerprint(tok)

	s.mu.Lock()
	s.blacklist[key] = s.now().Add(ttl)
	s.mu.Unlock()
	return nil
}

// IsBlacklisted implements Store.
func (s *MemoryStore) IsBlacklisted(ctx context.Context, tok string) (bool, error) {
	const op = "revocation.IsBlacklisted"

	if err := ctx.Err(); err != nil {
		return false, unavailable(op, err)
	}
	key := token.Fingerprint(tok)

	s.mu.RLock()
	exp, ok := s.blacklist[key]
	s.mu.RUnlock()
	return ok && s.now().Before(exp), nil
}

// AddRefreshToken implements Store. Adding to an expired set starts a fresh one.
func (s *MemoryStore) AddRefreshToken(ctx context.Context, userID, tok string, ttl time.Duration) error {
	const op = "revocation.AddRefreshToken"

	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := ctx.Err(); err != nil {
		return unavailable(op, err)
	}
	key := token.Fingerprint(tok)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	exp := now.Add(ttl)

	set, ok := s.sets[userID]
	if !ok || !now.Before(set.expiresAt) {
		set = &refreshSet{members: make(map[string]struct{})}
		s.sets[userID] = set
	}
	if exp.After(set.expiresAt) {
		set.expiresAt = exp
	}
	set.members[key] = struct{}{}
	return nil
}

// IsValidRefreshToken implements Store.
func (s *MemoryStore) IsValidRefreshToken(ctx context.Context, userID, tok string) (bool, error) {
	const op = "revocation.IsValidRefreshToken"

	if err := ctx.Err(); err != nil {
		return false, unavailable(op, err)
	}
	key := token.Fingerprint(tok)

	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[userID]
	if !ok || !s.now().Before(set.expiresAt) {
		return false, nil
	}
	_, ok = set.members[key]
	return ok, nil
}

// RemoveRefreshToken implements Store. A member of an expired set counts as absent.
func (s *MemoryStore) RemoveRefreshToken(ctx context.Context, userID, tok string) (bool, error) {
	const op = "revocation.RemoveRefreshToken"

	if err := ctx.Err(); err != nil {
		return false, unavailable(op, err)
	}
	key := token.Fingerprint(tok)

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[userID]
	if !ok || !s.now().Before(set.expiresAt) {
		return false, nil
	}
	if _, ok := set.members[key]; !ok {
		return false, nil
	}
	delete(set.members, key)
	return true, nil
}

// RemoveAllRefreshTokens implements Store.
func (s *MemoryStore) RemoveAllRefreshTokens(ctx context.Context, userID string) error {
	const op = "revocation.RemoveAllRefreshTokens"

	if err := ctx.Err(); err != nil {
		return unavailable(op, err)
	}
	s.mu.Lock()
	delete(s.sets, userID)
	s.mu.Unlock()
	return nil
}

// Purge implements Store.
func (s *MemoryStore) Purge(ctx context.Context) (int, error) {
	const op = "revocation.Purge"

	if err := ctx.Err(); err != nil {
		return 0, unavailable(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for k, exp := range s.blacklist {
		if !now.Before(exp) {
			delete(s.blacklist, k)
			n++
		}
	}
	for id, set := range s.sets {
		if !now.Before(set.expiresAt) {
			delete(s.sets, id)
			n++
		}
	}
	return n, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
