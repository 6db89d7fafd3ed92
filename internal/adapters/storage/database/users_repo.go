package database

import (
	"context"

	"gorm.io/gorm"

	"anticoag-tracker/internal/domain/users"
)

type UsersRepo struct {
	db *gorm.DB
}

func NewUsersRepo(db *gorm.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	rec := UserRecord{
		Model: Model{
			PublicID: u.ID,
			// A user owns their own row.
			UserID:    u.ID,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		},
		Provider:       u.Provider,
		ProviderUserID: u.ProviderUserID,
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		INRLow:         u.INRLow,
		INRHigh:        u.INRHigh,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *UsersRepo) Update(ctx context.Context, u users.User) error {
	var rec UserRecord
	err := r.db.WithContext(ctx).Where("public_id = ?", u.ID).First(&rec).Error
	if err != nil {
		return mapNotFound(err, users.ErrNotFound)
	}

	rec.Email = u.Email
	rec.DisplayName = u.DisplayName
	rec.INRLow = u.INRLow
	rec.INRHigh = u.INRHigh

	return r.db.WithContext(ctx).Save(&rec).Error
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	var rec UserRecord
	err := r.db.WithContext(ctx).Where("public_id = ?", id).First(&rec).Error
	if err != nil {
		return users.User{}, mapNotFound(err, users.ErrNotFound)
	}
	return toUser(rec), nil
}

func (r *UsersRepo) GetByProviderIdentity(ctx context.Context, provider, providerUserID string) (users.User, error) {
	var rec UserRecord
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&rec).Error
	if err != nil {
		return users.User{}, mapNotFound(err, users.ErrNotFound)
	}
	return toUser(rec), nil
}

func toUser(rec UserRecord) users.User {
	return users.User{
		ID:             rec.PublicID,
		Provider:       rec.Provider,
		ProviderUserID: rec.ProviderUserID,
		Email:          rec.Email,
		DisplayName:    rec.DisplayName,
		INRLow:         rec.INRLow,
		INRHigh:        rec.INRHigh,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}
