package auth

import "time"

// RefreshToken is the stored form of an opaque refresh token. Only the
// SHA-256 digest is persisted; ReplacedBy links the rotation chain.
type RefreshToken struct {
	Digest     string
	UserID     string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy string

	CreatedAt time.Time
}

// Session is what a successful login or refresh hands back to the client.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // seconds
	UserID       string
}
