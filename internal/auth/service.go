package auth

import (
	"context"
	"errors"
	"time"

	"anticoag-tracker/internal/domain/users"
)

var ErrUnauthorized = errors.New("unauthorized")

type Service struct {
	cfg    Config
	users  *users.Service
	tokens TokenRepository
	now    func() time.Time
}

func NewService(cfg Config, usersSvc *users.Service, tokens TokenRepository) *Service {
	return &Service{
		cfg:    cfg,
		users:  usersSvc,
		tokens: tokens,
		now:    time.Now,
	}
}

// CompleteLogin upserts the account behind a provider profile and issues a
// session.
func (s *Service) CompleteLogin(ctx context.Context, provider, providerUserID, email, displayName string) (Session, error) {
	u, err := s.users.UpsertFromProvider(ctx, provider, providerUserID, email, displayName)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, u.ID, u.Email)
}

// Refresh rotates a refresh token. Replaying an already-rotated token is
// treated as theft: the whole user's token set is revoked.
func (s *Service) Refresh(ctx context.Context, rawToken string) (Session, error) {
	digest := digestOf(rawToken)

	stored, err := s.tokens.GetByDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}

	now := s.now()
	if stored.RevokedAt != nil {
		if stored.ReplacedBy != "" {
			_ = s.tokens.RevokeAllForUser(ctx, stored.UserID)
		}
		return Session{}, ErrUnauthorized
	}
	if now.After(stored.ExpiresAt) {
		return Session{}, ErrUnauthorized
	}

	email := ""
	if u, err := s.users.Get(ctx, stored.UserID); err == nil {
		email = u.Email
	}

	session, newDigest, err := s.buildSession(ctx, stored.UserID, email)
	if err != nil {
		return Session{}, err
	}
	if err := s.tokens.MarkRotated(ctx, digest, newDigest); err != nil {
		return Session{}, err
	}
	return session, nil
}

// Logout revokes the presented refresh token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	err := s.tokens.Revoke(ctx, digestOf(rawToken))
	if errors.Is(err, ErrTokenNotFound) {
		return nil
	}
	return err
}

func (s *Service) issueSession(ctx context.Context, userID, email string) (Session, error) {
	session, _, err := s.buildSession(ctx, userID, email)
	return session, err
}

func (s *Service) buildSession(ctx context.Context, userID, email string) (Session, string, error) {
	now := s.now()

	access, err := issueAccessToken(s.cfg, userID, email, now)
	if err != nil {
		return Session{}, "", err
	}

	raw, digest, err := newOpaqueToken()
	if err != nil {
		return Session{}, "", err
	}

	if err := s.tokens.Create(ctx, RefreshToken{
		Digest:    digest,
		UserID:    userID,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt: now,
	}); err != nil {
		return Session{}, "", err
	}

	return Session{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
		UserID:       userID,
	}, digest, nil
}
