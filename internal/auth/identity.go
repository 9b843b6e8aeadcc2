package auth

import (
	"context"
	"errors"
	"sync"

	"huddle/internal/domain"
)

var ErrUnknownUser = errors.New("unknown user")

// IdentityStore resolves a verified user id to its display identity. The
// real store lives in an external account service; the core only consumes
// this port.
type IdentityStore interface {
	Lookup(ctx context.Context, id domain.UserID) (*domain.User, error)
}

// StaticStore is an in-memory IdentityStore used when the core runs without
// the external account service (dev mode, tests).
type StaticStore struct {
	mu    sync.RWMutex
	users map[domain.UserID]*domain.User
}

func NewStaticStore() *StaticStore {
	return &StaticStore{users: make(map[domain.UserID]*domain.User)}
}

func (s *StaticStore) Put(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *StaticStore) Lookup(_ context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUnknownUser
	}
	cp := *u
	return &cp, nil
}
