package database

import (
	"context"

	"gorm.io/gorm"

	"anticoag-tracker/internal/domain/audit"
)

type AuditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) List(ctx context.Context, userID string, limit, offset int) ([]audit.Record, error) {
	var recs []AuditEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	out := make([]audit.Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, audit.Record{
			ID:         rec.PublicID,
			UserID:     rec.UserID,
			EntityType: rec.EntityType,
			EntityID:   rec.EntityID,
			Action:     audit.Action(rec.Action),
			Snapshot:   rec.Snapshot,
			At:         rec.CreatedAt,
		})
	}
	return out, nil
}

func (r *AuditRepo) Count(ctx context.Context, userID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&AuditEntry{}).
		Where("user_id = ?", userID).Count(&n).Error
	return int(n), err
}

var _ audit.Repository = (*AuditRepo)(nil)
