package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"anticoag-tracker/internal/domain/users"
)

// -------------------------
// Test repos (in-memory)
// -------------------------

type testTokenRepo struct {
	byDigest map[string]RefreshToken
}

func newTestTokenRepo() *testTokenRepo {
	return &testTokenRepo{byDigest: map[string]RefreshToken{}}
}

func (r *testTokenRepo) Create(ctx context.Context, t RefreshToken) error {
	r.byDigest[t.Digest] = t
	return nil
}

func (r *testTokenRepo) GetByDigest(ctx context.Context, digest string) (RefreshToken, error) {
	t, ok := r.byDigest[digest]
	if !ok {
		return RefreshToken{}, ErrTokenNotFound
	}
	return t, nil
}

func (r *testTokenRepo) MarkRotated(ctx context.Context, digest, replacedBy string) error {
	t, ok := r.byDigest[digest]
	if !ok {
		return ErrTokenNotFound
	}
	now := time.Now()
	t.RevokedAt = &now
	t.ReplacedBy = replacedBy
	r.byDigest[digest] = t
	return nil
}

func (r *testTokenRepo) Revoke(ctx context.Context, digest string) error {
	t, ok := r.byDigest[digest]
	if !ok || t.RevokedAt != nil {
		return ErrTokenNotFound
	}
	now := time.Now()
	t.RevokedAt = &now
	r.byDigest[digest] = t
	return nil
}

func (r *testTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	now := time.Now()
	for digest, t := range r.byDigest {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			r.byDigest[digest] = t
		}
	}
	return nil
}

func (r *testTokenRepo) live(userID string) int {
	n := 0
	for _, t := range r.byDigest {
		if t.UserID == userID && t.RevokedAt == nil {
			n++
		}
	}
	return n
}

type testUserRepo struct {
	byID map[string]users.User
}

func (r *testUserRepo) Create(ctx context.Context, u users.User) error {
	r.byID[u.ID] = u
	return nil
}

func (r *testUserRepo) Update(ctx context.Context, u users.User) error {
	if _, ok := r.byID[u.ID]; !ok {
		return users.ErrNotFound
	}
	r.byID[u.ID] = u
	return nil
}

func (r *testUserRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (r *testUserRepo) GetByProviderIdentity(ctx context.Context, provider, providerUserID string) (users.User, error) {
	for _, u := range r.byID {
		if u.Provider == provider && u.ProviderUserID == providerUserID {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

// -------------------------
// Fixtures
// -------------------------

func testConfig() Config {
	return Config{
		Issuer:          "anticoag-test",
		JWTSecret:       []byte("thisis32byteslongsecretkey123456"),
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	}
}

func newTestService(t *testing.T) (*Service, *testTokenRepo) {
	t.Helper()
	tokens := newTestTokenRepo()
	usersSvc := users.NewService(&testUserRepo{byID: map[string]users.User{}})
	return NewService(testConfig(), usersSvc, tokens), tokens
}

// -------------------------
// Tests
// -------------------------

func TestVerifier_RoundTrip(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	access, err := issueAccessToken(cfg, "user-1", "ada@example.com", now)
	if err != nil {
		t.Fatalf("issueAccessToken error: %v", err)
	}

	v := NewVerifier(cfg)
	v.now = func() time.Time { return now.Add(time.Minute) }

	claims, err := v.Verify(context.Background(), access)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.UserID)
	}
	if claims.Email != "ada@example.com" {
		t.Fatalf("expected email claim, got %q", claims.Email)
	}
}

func TestVerifier_RejectsExpiredAndForeign(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	access, err := issueAccessToken(cfg, "user-1", "", now)
	if err != nil {
		t.Fatalf("issueAccessToken error: %v", err)
	}

	v := NewVerifier(cfg)
	v.now = func() time.Time { return now.Add(cfg.AccessTokenTTL + time.Minute) }
	if _, err := v.Verify(context.Background(), access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	// Signed under a different secret.
	other := testConfig()
	other.JWTSecret = []byte("another32byteslongsecretkey12345")
	foreign, err := issueAccessToken(other, "user-1", "", now)
	if err != nil {
		t.Fatalf("issueAccessToken error: %v", err)
	}
	v.now = func() time.Time { return now }
	if _, err := v.Verify(context.Background(), foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign signature to be rejected, got %v", err)
	}

	if _, err := v.Verify(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected empty token to be rejected, got %v", err)
	}
}

func TestService_CompleteLogin_IssuesSession(t *testing.T) {
	svc, tokens := newTestService(t)

	session, err := svc.CompleteLogin(context.Background(), "google", "g-1", "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("CompleteLogin error: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatalf("expected both tokens issued")
	}
	if session.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Fatalf("expected ExpiresIn to mirror the access TTL, got %d", session.ExpiresIn)
	}

	// Only the digest is stored, never the raw token.
	if _, ok := tokens.byDigest[session.RefreshToken]; ok {
		t.Fatalf("raw refresh token must not be a storage key")
	}
	stored, err := tokens.GetByDigest(context.Background(), digestOf(session.RefreshToken))
	if err != nil {
		t.Fatalf("expected stored digest for the issued token: %v", err)
	}
	if stored.UserID != session.UserID {
		t.Fatalf("stored token user %q != session user %q", stored.UserID, session.UserID)
	}
}

func TestService_Refresh_RotatesToken(t *testing.T) {
	svc, tokens := newTestService(t)

	first, err := svc.CompleteLogin(context.Background(), "google", "g-1", "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("CompleteLogin error: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("expected a new refresh token on rotation")
	}
	if second.UserID != first.UserID {
		t.Fatalf("expected rotation to keep the user")
	}

	old, err := tokens.GetByDigest(context.Background(), digestOf(first.RefreshToken))
	if err != nil {
		t.Fatalf("GetByDigest error: %v", err)
	}
	if old.RevokedAt == nil {
		t.Fatalf("expected rotated token to be revoked")
	}
	if old.ReplacedBy != digestOf(second.RefreshToken) {
		t.Fatalf("expected rotation chain to record the successor digest")
	}
}

func TestService_Refresh_ReplayRevokesEverything(t *testing.T) {
	svc, tokens := newTestService(t)

	first, err := svc.CompleteLogin(context.Background(), "google", "g-1", "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("CompleteLogin error: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}

	// Replaying the rotated token looks like theft.
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized on replay, got %v", err)
	}
	if n := tokens.live(first.UserID); n != 0 {
		t.Fatalf("expected every live token revoked after replay, %d remain", n)
	}
}

func TestService_Refresh_ExpiredAndUnknown(t *testing.T) {
	svc, tokens := newTestService(t)

	session, err := svc.CompleteLogin(context.Background(), "google", "g-1", "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("CompleteLogin error: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	if _, err := svc.Refresh(context.Background(), session.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired refresh token rejected, got %v", err)
	}
	// Expiry is not a rotation chain break, so the rest of the set survives.
	if n := tokens.live(session.UserID); n != 1 {
		t.Fatalf("expected the token to stay on expiry, %d live", n)
	}

	if _, err := svc.Refresh(context.Background(), "never-issued"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unknown token rejected, got %v", err)
	}
}

func TestService_Logout(t *testing.T) {
	svc, tokens := newTestService(t)

	session, err := svc.CompleteLogin(context.Background(), "google", "g-1", "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("CompleteLogin error: %v", err)
	}

	if err := svc.Logout(context.Background(), session.RefreshToken); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if n := tokens.live(session.UserID); n != 0 {
		t.Fatalf("expected logout to revoke the token, %d live", n)
	}

	// Unknown tokens are a no-op.
	if err := svc.Logout(context.Background(), "never-issued"); err != nil {
		t.Fatalf("expected unknown token logout to be a no-op, got %v", err)
	}
}
