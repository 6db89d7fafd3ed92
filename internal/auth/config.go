package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ProviderConfig describes an external OAuth provider.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// Config is the full auth configuration: signing material, TTLs and the
// configured providers.
type Config struct {
	Issuer          string
	JWTSecret       []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	PendingLoginTTL time.Duration

	Providers         map[string]ProviderConfig
	RedirectAllowlist []string
}

// providersEnv holds raw provider env values.
type providersEnv struct {
	LoginRedirects []string `env:"AUTH_LOGIN_REDIRECTS" envSeparator:","`

	GoogleClientID     string   `env:"AUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string   `env:"AUTH_GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string   `env:"AUTH_GOOGLE_REDIRECT_URI"`
	GoogleScopes       []string `env:"AUTH_GOOGLE_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`

	GitHubClientID     string   `env:"AUTH_GITHUB_CLIENT_ID"`
	GitHubClientSecret string   `env:"AUTH_GITHUB_CLIENT_SECRET"`
	GitHubRedirectURI  string   `env:"AUTH_GITHUB_REDIRECT_URI"`
	GitHubScopes       []string `env:"AUTH_GITHUB_SCOPES" envSeparator:"," envDefault:"read:user,user:email"`
}

// LoadConfig builds the auth config. Providers without a client id are left
// out, so a dev setup with no OAuth credentials still boots.
func LoadConfig(issuer, jwtSecret string, accessTTL, refreshTTL time.Duration) (Config, error) {
	var raw providersEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse auth env: %w", err)
	}

	cfg := Config{
		Issuer:            strings.TrimSpace(issuer),
		JWTSecret:         []byte(jwtSecret),
		AccessTokenTTL:    accessTTL,
		RefreshTokenTTL:   refreshTTL,
		PendingLoginTTL:   15 * time.Minute,
		Providers:         map[string]ProviderConfig{},
		RedirectAllowlist: trimCSV(raw.LoginRedirects),
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 30 * 24 * time.Hour
	}

	if raw.GoogleClientID != "" {
		cfg.Providers["google"] = ProviderConfig{
			Name:         "google",
			ClientID:     raw.GoogleClientID,
			ClientSecret: raw.GoogleClientSecret,
			RedirectURI:  raw.GoogleRedirectURI,
			AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL:     "https://oauth2.googleapis.com/token",
			UserInfoURL:  "https://openidconnect.googleapis.com/v1/userinfo",
			Scopes:       trimCSV(raw.GoogleScopes),
		}
	}
	if raw.GitHubClientID != "" {
		cfg.Providers["github"] = ProviderConfig{
			Name:         "github",
			ClientID:     raw.GitHubClientID,
			ClientSecret: raw.GitHubClientSecret,
			RedirectURI:  raw.GitHubRedirectURI,
			AuthURL:      "https://github.com/login/oauth/authorize",
			TokenURL:     "https://github.com/login/oauth/access_token",
			UserInfoURL:  "https://api.github.com/user",
			Scopes:       trimCSV(raw.GitHubScopes),
		}
	}

	return cfg, nil
}

func trimCSV(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isAllowedRedirect(uri string, allowlist []string) bool {
	uri = strings.TrimSpace(uri)
	// Site-relative paths cannot leave the site.
	if strings.HasPrefix(uri, "/") && !strings.HasPrefix(uri, "//") {
		return true
	}
	for _, allowed := range allowlist {
		if uri == allowed || strings.HasPrefix(uri, strings.TrimRight(allowed, "/")+"/") {
			return true
		}
	}
	return false
}
