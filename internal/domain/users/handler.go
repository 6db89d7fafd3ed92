package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"anticoag-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/me", func(mr chi.Router) {
		mr.Get("/", getMeHandler(svc))
		mr.Patch("/", updateMeHandler(svc))
	})
}

type profileResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	INRLow      float64   `json:"inr_low"`
	INRHigh     float64   `json:"inr_high"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type updateProfileRequest struct {
	DisplayName *string  `json:"display_name"`
	INRLow      *float64 `json:"inr_low"`
	INRHigh     *float64 `json:"inr_high"`
}

// getMeHandler returns the caller's profile.
//
//	@Summary	Get own profile
//	@Tags		profile
//	@Produce	json
//	@Success	200	{object}	profileResponse
//	@Router		/me [get]
func getMeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		u, err := svc.Get(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Dev-mode identities have no stored profile; answer with
				// defaults so the UI still renders.
				writeJSON(w, http.StatusOK, profileResponse{
					ID:      claims.UserID,
					INRLow:  DefaultINRLow,
					INRHigh: DefaultINRHigh,
				})
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toProfileResponse(u))
	}
}

// updateMeHandler patches display name and INR target range.
//
//	@Summary	Update own profile
//	@Tags		profile
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	profileResponse
//	@Router		/me [patch]
func updateMeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		u, err := svc.UpdateProfile(r.Context(), claims.UserID, UpdateInput{
			DisplayName: req.DisplayName,
			INRLow:      req.INRLow,
			INRHigh:     req.INRHigh,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, "invalid target range", http.StatusUnprocessableEntity)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toProfileResponse(u))
	}
}

func toProfileResponse(u User) profileResponse {
	return profileResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		INRLow:      u.INRLow,
		INRHigh:     u.INRHigh,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
