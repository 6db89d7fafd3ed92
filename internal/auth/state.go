package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"time"
)

// pendingLogin is one in-flight provider authorization.
type pendingLogin struct {
	State        string
	Provider     string
	RedirectURI  string
	CodeVerifier string
	ExpiresAt    time.Time
}

// stateStore keeps pending logins in memory with a TTL. Losing them on
// restart only forces the user to start the login again.
type stateStore struct {
	mu      sync.Mutex
	pending map[string]pendingLogin
}

func newStateStore() *stateStore {
	return &stateStore{pending: map[string]pendingLogin{}}
}

func (s *stateStore) create(provider, redirectURI, codeVerifier string, ttl time.Duration) (pendingLogin, error) {
	state, err := randomToken()
	if err != nil {
		return pendingLogin{}, err
	}

	p := pendingLogin{
		State:        state,
		Provider:     provider,
		RedirectURI:  redirectURI,
		CodeVerifier: codeVerifier,
		ExpiresAt:    time.Now().Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Opportunistic sweep keeps the map from growing unbounded.
	now := time.Now()
	for k, v := range s.pending {
		if now.After(v.ExpiresAt) {
			delete(s.pending, k)
		}
	}

	s.pending[state] = p
	return p, nil
}

func (s *stateStore) take(state string) (pendingLogin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[state]
	if !ok {
		return pendingLogin{}, false
	}
	delete(s.pending, state)

	if time.Now().After(p.ExpiresAt) {
		return pendingLogin{}, false
	}
	return p, true
}

func randomToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// computeS256Challenge derives the PKCE code challenge from a verifier.
func computeS256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
