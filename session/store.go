package session

import (
	"context"
	"errors"
	"sync"
)

// ErrEmptyToken is returned when a session is created without a token.
var ErrEmptyToken = errors.New("empty session token")

// ErrNoSession is returned when a role is set while no token is held.
var ErrNoSession = errors.New("no active session")

// TokenCheck inspects a restored token. It reports whether the token is
// already expired and, when available, a role label embedded in it.
type TokenCheck func(token string) (expired bool, roleLabel string)

// TokenStore is the persisted holder of the bearer token and the user's
// role. It is safe for concurrent use.
type TokenStore struct {
	mu      sync.RWMutex
	storage Storage
	check   TokenCheck

	token string
	role  Role
}

// NewTokenStore returns an empty store backed by storage. check may be nil.
func NewTokenStore(storage Storage, check TokenCheck) *TokenStore {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &TokenStore{
		storage: storage,
		check:   check,
		role:    RoleGuest,
	}
}

// Restore reloads token and role from durable storage. An expired token is
// purged instead of restored.
func (s *TokenStore) Restore(ctx context.Context) error {
	token, ok, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ok || token == "" {
		s.token, s.role = "", RoleGuest
		return nil
	}

	var hint string
	if s.check != nil {
		var expired bool
		expired, hint = s.check(token)
		if expired {
			s.token, s.role = "", RoleGuest
			return s.storage.Delete(ctx, KeyToken, KeyRole)
		}
	}

	role := RoleUnknown
	label, ok, err := s.storage.Get(ctx, KeyRole)
	if err != nil {
		return err
	}
	if ok {
		role, _ = ParseRole(label)
	}
	if !role.Known() && hint != "" {
		role, _ = ParseRole(hint)
	}
	if role == RoleGuest {
		role = RoleUnknown
	}

	s.token, s.role = token, role
	return nil
}

// Token returns the held token, or "" when signed out.
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Role returns the cached role. It is RoleGuest without a token and
// RoleUnknown when a token is held but the role has not been resolved.
func (s *TokenStore) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return RoleGuest
	}
	return s.role
}

// Snapshot returns token and role read under one lock.
func (s *TokenStore) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return Session{Role: RoleGuest}
	}
	return Session{Token: s.token, Role: s.role}
}

// SetSession stores a freshly issued token. A guest or unknown role leaves
// the role unresolved until the profile is fetched. The in-memory session
// changes only once storage has accepted it.
func (s *TokenStore) SetSession(ctx context.Context, token string, role Role) error {
	if token == "" {
		return ErrEmptyToken
	}
	if role == RoleGuest {
		role = RoleUnknown
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(ctx, KeyToken, token); err != nil {
		return err
	}
	var err error
	if role.Known() {
		err = s.storage.Set(ctx, KeyRole, role.String())
	} else {
		err = s.storage.Delete(ctx, KeyRole)
	}
	if err != nil {
		// A token without its role would restore as a different session.
		_ = s.storage.Delete(ctx, KeyToken, KeyRole)
		return err
	}

	s.token, s.role = token, role
	return nil
}

// SetRole caches the role resolved for the current token.
func (s *TokenStore) SetRole(ctx context.Context, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return ErrNoSession
	}
	if role == RoleGuest {
		role = RoleUnknown
	}
	var err error
	if role.Known() {
		err = s.storage.Set(ctx, KeyRole, role.String())
	} else {
		err = s.storage.Delete(ctx, KeyRole)
	}
	if err != nil {
		return err
	}
	s.role = role
	return nil
}

// Clear drops token and role from memory and storage. It reports whether a
// token was held, so a late 401 can be told apart from a live expiry.
func (s *TokenStore) Clear(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	had := s.token != ""
	s.token, s.role = "", RoleGuest
	return had, s.storage.Delete(ctx, KeyToken, KeyRole)
}
