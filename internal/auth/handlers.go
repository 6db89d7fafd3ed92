package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"anticoag-tracker/internal/platform/httpclient"

	"github.com/go-chi/chi/v5"
)

// SessionCookie carries the access token for the server-rendered pages.
const SessionCookie = "anticoag_session"

// Handler owns the login/refresh/logout HTTP surface.
type Handler struct {
	cfg   Config
	svc   *Service
	hc    *httpclient.Client
	state *stateStore
}

func NewHandler(cfg Config, svc *Service, hc *httpclient.Client) *Handler {
	if hc == nil {
		hc = httpclient.New(0)
	}
	return &Handler{
		cfg:   cfg,
		svc:   svc,
		hc:    hc,
		state: newStateStore(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(ar chi.Router) {
		ar.Get("/providers", h.listProviders)
		ar.Get("/providers/{providerID}/start", h.start)
		ar.Get("/providers/{providerID}/callback", h.callback)
		ar.Post("/refresh", h.refresh)
		ar.Post("/logout", h.logout)
	})
}

type providerInfo struct {
	ID       string `json:"id"`
	StartURL string `json:"start_url"`
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	out := make([]providerInfo, 0, len(h.cfg.Providers))
	for id := range h.cfg.Providers {
		out = append(out, providerInfo{
			ID:       id,
			StartURL: "/auth/providers/" + id + "/start",
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// start redirects the browser to the provider's authorize endpoint.
//
//	@Summary	Start OAuth login
//	@Tags		auth
//	@Router		/auth/providers/{providerID}/start [get]
func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	provider, ok := h.cfg.Providers[providerID]
	if !ok {
		http.NotFound(w, r)
		return
	}

	redirectURI := strings.TrimSpace(r.URL.Query().Get("redirect_uri"))
	if redirectURI != "" && !isAllowedRedirect(redirectURI, h.cfg.RedirectAllowlist) {
		http.Error(w, "redirect_uri is not allowed", http.StatusBadRequest)
		return
	}

	codeVerifier, err := randomToken()
	if err != nil {
		http.Error(w, "failed to start login", http.StatusInternalServerError)
		return
	}

	pending, err := h.state.create(providerID, redirectURI, codeVerifier, h.cfg.PendingLoginTTL)
	if err != nil {
		http.Error(w, "failed to start login", http.StatusInternalServerError)
		return
	}

	authURL, err := authorizeURL(provider, pending.State, computeS256Challenge(codeVerifier))
	if err != nil {
		http.Error(w, "invalid provider config", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// callback finishes the provider flow: code exchange, profile fetch, user
// upsert, session issuance. Browser logins (a stored redirect URI) get a
// session cookie and a redirect; API logins get JSON.
func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	provider, ok := h.cfg.Providers[providerID]
	if !ok {
		http.NotFound(w, r)
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		http.Error(w, "provider error: "+errParam, http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	stateValue := r.URL.Query().Get("state")
	if code == "" || stateValue == "" {
		http.Error(w, "missing code or state", http.StatusBadRequest)
		return
	}

	pending, ok := h.state.take(stateValue)
	if !ok || pending.Provider != providerID {
		http.Error(w, "invalid or expired state", http.StatusBadRequest)
		return
	}

	token, err := exchangeCode(r.Context(), h.hc, provider, code, pending.CodeVerifier)
	if err != nil {
		http.Error(w, "failed to exchange provider token", http.StatusBadGateway)
		return
	}

	profile, err := fetchProfile(r.Context(), h.hc, provider, token.AccessToken)
	if err != nil {
		http.Error(w, "failed to fetch provider profile", http.StatusBadGateway)
		return
	}

	session, err := h.svc.CompleteLogin(r.Context(), providerID, profile.ProviderUserID, profile.Email, profile.DisplayName)
	if err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	if pending.RedirectURI != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    session.AccessToken,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(h.cfg.AccessTokenTTL),
		})
		target, err := url.Parse(pending.RedirectURI)
		if err != nil {
			http.Error(w, "invalid redirect", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, target.String(), http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    session.ExpiresIn,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh rotates a refresh token and returns a new session.
//
//	@Summary	Refresh session
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	sessionResponse
//	@Router		/auth/refresh [post]
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		http.Error(w, "refresh_token is required", http.StatusBadRequest)
		return
	}

	session, err := h.svc.Refresh(r.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    session.ExpiresIn,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		http.Error(w, "refresh_token is required", http.StatusBadRequest)
		return
	}

	if err := h.svc.Logout(r.Context(), strings.TrimSpace(req.RefreshToken)); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
