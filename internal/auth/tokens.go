package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	authport "anticoag-tracker/internal/ports/auth"
)

var ErrInvalidToken = errors.New("invalid token")

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier validates HS256 access tokens. It implements the auth port used
// by the request middleware.
type Verifier struct {
	issuer string
	secret []byte
	now    func() time.Time
}

func NewVerifier(cfg Config) *Verifier {
	return &Verifier{
		issuer: cfg.Issuer,
		secret: cfg.JWTSecret,
		now:    time.Now,
	}
}

func (v *Verifier) Verify(ctx context.Context, token string) (authport.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" || len(v.secret) == 0 {
		return authport.Claims{}, ErrInvalidToken
	}

	var parsed accessClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return authport.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return authport.Claims{}, ErrInvalidToken
	}

	return authport.Claims{UserID: parsed.Subject, Email: parsed.Email}, nil
}

// issueAccessToken signs a short-lived JWT for the user.
func issueAccessToken(cfg Config, userID, email string, now time.Time) (string, error) {
	if len(cfg.JWTSecret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL)),
			ID:        uuid.NewString(),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.JWTSecret)
}

// newOpaqueToken returns a random refresh token and its storage digest.
func newOpaqueToken() (raw, digest string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, digestOf(raw), nil
}

func digestOf(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
