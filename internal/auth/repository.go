package auth

import (
	"context"
	"errors"
)

var ErrTokenNotFound = errors.New("refresh token not found")

// TokenRepository persists refresh tokens, keyed by digest.
type TokenRepository interface {
	Create(ctx context.Context, t RefreshToken) error
	GetByDigest(ctx context.Context, digest string) (RefreshToken, error)
	// MarkRotated revokes a token and records its successor.
	MarkRotated(ctx context.Context, digest, replacedBy string) error
	Revoke(ctx context.Context, digest string) error
	// RevokeAllForUser invalidates every live token of a user; called when a
	// rotated token is replayed.
	RevokeAllForUser(ctx context.Context, userID string) error
}
