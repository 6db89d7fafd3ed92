package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// UpsertFromProvider finds or creates the account behind an external OAuth
// identity. Email and display name refresh on every login.
func (s *Service) UpsertFromProvider(ctx context.Context, provider, providerUserID, email, displayName string) (User, error) {
	provider = strings.TrimSpace(provider)
	providerUserID = strings.TrimSpace(providerUserID)
	if provider == "" || providerUserID == "" {
		return User{}, ErrInvalidInput
	}

	existing, err := s.repo.GetByProviderIdentity(ctx, provider, providerUserID)
	if err == nil {
		changed := false
		if e := strings.TrimSpace(email); e != "" && e != existing.Email {
			existing.Email = e
			changed = true
		}
		if n := strings.TrimSpace(displayName); n != "" && n != existing.DisplayName {
			existing.DisplayName = n
			changed = true
		}
		if changed {
			existing.UpdatedAt = s.now()
			if err := s.repo.Update(ctx, existing); err != nil {
				return User{}, err
			}
		}
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	now := s.now()
	u := User{
		ID:             uuid.NewString(),
		Provider:       provider,
		ProviderUserID: providerUserID,
		Email:          strings.TrimSpace(email),
		DisplayName:    strings.TrimSpace(displayName),
		INRLow:         DefaultINRLow,
		INRHigh:        DefaultINRHigh,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

type UpdateInput struct {
	// Pointers so PATCH can leave fields untouched.
	DisplayName *string
	INRLow      *float64
	INRHigh     *float64
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateInput) (User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}

	if in.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.INRLow != nil {
		u.INRLow = *in.INRLow
	}
	if in.INRHigh != nil {
		u.INRHigh = *in.INRHigh
	}

	if u.INRLow <= 0 || u.INRHigh <= u.INRLow {
		return User{}, ErrInvalidInput
	}

	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// TargetRange exposes the INR range without leaking the whole profile.
// The inr module depends on this to avoid an import cycle.
func (s *Service) TargetRange(ctx context.Context, userID string) (low, high float64, err error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Accounts created out-of-band (dev mode) fall back to defaults.
			return DefaultINRLow, DefaultINRHigh, nil
		}
		return 0, 0, err
	}
	return u.INRLow, u.INRHigh, nil
}
