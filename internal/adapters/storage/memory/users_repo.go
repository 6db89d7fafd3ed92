package memory

import (
	"context"
	"errors"
	"strings"

	"anticoag-tracker/internal/domain/audit"
	"anticoag-tracker/internal/domain/users"
)

type userRepo struct {
	s *Store
}

func NewUserRepo(s *Store) users.Repository {
	return &userRepo{s: s}
}

func (r *userRepo) Create(ctx context.Context, u users.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id required")
	}
	if _, exists := r.s.users[u.ID]; exists {
		return errors.New("user already exists")
	}
	r.s.users[u.ID] = u
	r.s.recordAudit(audit.ActionCreate, "user", u.ID, u.ID, u)
	return nil
}

func (r *userRepo) Update(ctx context.Context, u users.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[u.ID]; !exists {
		return users.ErrNotFound
	}
	r.s.users[u.ID] = u
	r.s.recordAudit(audit.ActionUpdate, "user", u.ID, u.ID, u)
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) GetByProviderIdentity(ctx context.Context, provider, providerUserID string) (users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Provider == provider && u.ProviderUserID == providerUserID {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}
