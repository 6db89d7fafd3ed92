package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"anticoag-tracker/internal/platform/httpclient"
)

// providerToken is the provider's token endpoint response.
type providerToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Profile is the normalized identity returned by a provider's userinfo
// endpoint.
type Profile struct {
	ProviderUserID string
	Email          string
	DisplayName    string
}

// exchangeCode swaps an authorization code for a provider access token.
func exchangeCode(ctx context.Context, hc *httpclient.Client, p ProviderConfig, code, codeVerifier string) (providerToken, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.ClientID)
	form.Set("client_secret", p.ClientSecret)
	form.Set("redirect_uri", p.RedirectURI)
	form.Set("code_verifier", codeVerifier)

	var token providerToken
	if err := hc.PostForm(ctx, p.TokenURL, form, &token); err != nil {
		return providerToken{}, fmt.Errorf("exchange code: %w", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return providerToken{}, errors.New("provider returned no access token")
	}
	return token, nil
}

// fetchProfile reads userinfo and maps provider-specific field names onto
// the normalized Profile.
func fetchProfile(ctx context.Context, hc *httpclient.Client, p ProviderConfig, accessToken string) (Profile, error) {
	headers := map[string]string{"Authorization": "Bearer " + accessToken}

	var raw json.RawMessage
	if err := hc.DoJSON(ctx, "GET", p.UserInfoURL, headers, nil, &raw); err != nil {
		return Profile{}, fmt.Errorf("fetch userinfo: %w", err)
	}

	switch p.Name {
	case "github":
		var gh struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := json.Unmarshal(raw, &gh); err != nil {
			return Profile{}, err
		}
		if gh.ID == 0 {
			return Profile{}, errors.New("github userinfo missing id")
		}
		name := gh.Name
		if name == "" {
			name = gh.Login
		}
		return Profile{
			ProviderUserID: strconv.FormatInt(gh.ID, 10),
			Email:          gh.Email,
			DisplayName:    name,
		}, nil
	default:
		// OpenID Connect shape (google and most others).
		var oidc struct {
			Sub   string `json:"sub"`
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := json.Unmarshal(raw, &oidc); err != nil {
			return Profile{}, err
		}
		if strings.TrimSpace(oidc.Sub) == "" {
			return Profile{}, errors.New("userinfo missing sub")
		}
		return Profile{
			ProviderUserID: oidc.Sub,
			Email:          oidc.Email,
			DisplayName:    oidc.Name,
		}, nil
	}
}

// authorizeURL builds the provider redirect carrying state and PKCE
// challenge.
func authorizeURL(p ProviderConfig, state, codeChallenge string) (string, error) {
	u, err := url.Parse(p.AuthURL)
	if err != nil {
		return "", fmt.Errorf("invalid provider auth url: %w", err)
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", p.RedirectURI)
	q.Set("scope", strings.Join(p.Scopes, " "))
	q.Set("state", state)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")

	u.RawQuery = q.Encode()
	return u.String(), nil
}
