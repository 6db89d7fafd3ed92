package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	"anticoag-tracker/internal/auth"
)

type tokenRepo struct {
	s *Store
}

func NewTokenRepo(s *Store) auth.TokenRepository {
	return &tokenRepo{s: s}
}

func (r *tokenRepo) Create(ctx context.Context, t auth.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(t.Digest) == "" {
		return errors.New("token digest required")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.s.tokens[t.Digest] = t
	return nil
}

func (r *tokenRepo) GetByDigest(ctx context.Context, digest string) (auth.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[digest]
	if !ok {
		return auth.RefreshToken{}, auth.ErrTokenNotFound
	}
	return t, nil
}

func (r *tokenRepo) MarkRotated(ctx context.Context, digest, replacedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[digest]
	if !ok {
		return auth.ErrTokenNotFound
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	t.ReplacedBy = replacedBy
	r.s.tokens[digest] = t
	return nil
}

func (r *tokenRepo) Revoke(ctx context.Context, digest string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[digest]
	if !ok || t.RevokedAt != nil {
		return auth.ErrTokenNotFound
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	r.s.tokens[digest] = t
	return nil
}

func (r *tokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	for digest, t := range r.s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			r.s.tokens[digest] = t
		}
	}
	return nil
}
