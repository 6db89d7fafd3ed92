package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"anticoag-tracker/internal/auth"
)

type TokenRepo struct {
	db *gorm.DB
}

func NewTokenRepo(db *gorm.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) Create(ctx context.Context, t auth.RefreshToken) error {
	rec := RefreshTokenRecord{
		Digest:     t.Digest,
		UserID:     t.UserID,
		ExpiresAt:  t.ExpiresAt,
		RevokedAt:  t.RevokedAt,
		ReplacedBy: t.ReplacedBy,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *TokenRepo) GetByDigest(ctx context.Context, digest string) (auth.RefreshToken, error) {
	var rec RefreshTokenRecord
	err := r.db.WithContext(ctx).Where("digest = ?", digest).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.RefreshToken{}, auth.ErrTokenNotFound
		}
		return auth.RefreshToken{}, err
	}
	return auth.RefreshToken{
		Digest:     rec.Digest,
		UserID:     rec.UserID,
		ExpiresAt:  rec.ExpiresAt,
		RevokedAt:  rec.RevokedAt,
		ReplacedBy: rec.ReplacedBy,
		CreatedAt:  rec.CreatedAt,
	}, nil
}

func (r *TokenRepo) MarkRotated(ctx context.Context, digest, replacedBy string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&RefreshTokenRecord{}).
		Where("digest = ?", digest).
		Updates(map[string]any{"revoked_at": now, "replaced_by": replacedBy})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return auth.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepo) Revoke(ctx context.Context, digest string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&RefreshTokenRecord{}).
		Where("digest = ? AND revoked_at IS NULL", digest).
		Update("revoked_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return auth.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&RefreshTokenRecord{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
}

var _ auth.TokenRepository = (*TokenRepo)(nil)
