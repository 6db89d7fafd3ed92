package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"anticoag-tracker/internal/domain/inr"
)

type INRRepo struct {
	db *gorm.DB
}

func NewINRRepo(db *gorm.DB) *INRRepo {
	return &INRRepo{db: db}
}

func (r *INRRepo) CreateTest(ctx context.Context, t inr.Test) error {
	rec := INRTestRecord{
		Model: Model{
			PublicID:  t.ID,
			UserID:    t.UserID,
			CreatedAt: t.CreatedAt,
		},
		Value:    t.Value,
		TestedAt: t.TestedAt,
		InRange:  t.InRange,
		Notes:    t.Notes,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *INRRepo) ListTests(ctx context.Context, userID string, from, to time.Time) ([]inr.Test, error) {
	var recs []INRTestRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).
		Where("tested_at BETWEEN ? AND ?", from, to).
		Order("tested_at DESC").Find(&recs).Error
	if err != nil {
		return nil, err
	}

	out := make([]inr.Test, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toINRTest(rec))
	}
	return out, nil
}

func (r *INRRepo) DeleteTest(ctx context.Context, userID, id string) error {
	var rec INRTestRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).
		Where("public_id = ?", id).First(&rec).Error
	if err != nil {
		return mapNotFound(err, inr.ErrNotFound)
	}
	return r.db.WithContext(ctx).Delete(&rec).Error
}

func (r *INRRepo) GetSchedule(ctx context.Context, userID string) (inr.Schedule, error) {
	var rec INRScheduleRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).First(&rec).Error
	if err != nil {
		return inr.Schedule{}, mapNotFound(err, inr.ErrNotFound)
	}
	return inr.Schedule{
		ID:          rec.PublicID,
		UserID:      rec.UserID,
		CadenceDays: rec.CadenceDays,
		StartDate:   rec.StartDate,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

func (r *INRRepo) SaveSchedule(ctx context.Context, s inr.Schedule) error {
	var rec INRScheduleRecord
	err := r.db.WithContext(ctx).Scopes(forUser(s.UserID)).
		Where("public_id = ?", s.ID).First(&rec).Error
	switch {
	case err == nil:
		rec.CadenceDays = s.CadenceDays
		rec.StartDate = s.StartDate
		return r.db.WithContext(ctx).Save(&rec).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = INRScheduleRecord{
			Model: Model{
				PublicID:  s.ID,
				UserID:    s.UserID,
				CreatedAt: s.CreatedAt,
			},
			CadenceDays: s.CadenceDays,
			StartDate:   s.StartDate,
		}
		return r.db.WithContext(ctx).Create(&rec).Error
	default:
		return err
	}
}

// ReplaceItems keeps fulfilled items and swaps everything else for the new
// set, inside one transaction.
func (r *INRRepo) ReplaceItems(ctx context.Context, userID, scheduleID string, items []inr.ScheduleItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []INRScheduleItemRecord
		if err := tx.Scopes(forUser(userID)).
			Where("status <> ?", string(inr.ItemStatusFulfilled)).
			Find(&stale).Error; err != nil {
			return err
		}
		if len(stale) > 0 {
			ids := make([]uint, 0, len(stale))
			for _, rec := range stale {
				ids = append(ids, rec.ID)
			}
			if err := tx.Where("id IN ?", ids).
				Delete(&INRScheduleItemRecord{}).Error; err != nil {
				return err
			}
		}

		if len(items) == 0 {
			return nil
		}
		recs := make([]INRScheduleItemRecord, 0, len(items))
		for _, item := range items {
			recs = append(recs, toScheduleItemRecord(item))
		}
		return tx.Create(&recs).Error
	})
}

func (r *INRRepo) ListItems(ctx context.Context, userID string) ([]inr.ScheduleItem, error) {
	var recs []INRScheduleItemRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).
		Order("due_date ASC").Find(&recs).Error
	if err != nil {
		return nil, err
	}

	out := make([]inr.ScheduleItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, inr.ScheduleItem{
			ID:              rec.PublicID,
			UserID:          rec.UserID,
			ScheduleID:      rec.ScheduleID,
			DueDate:         rec.DueDate,
			Status:          inr.ItemStatus(rec.Status),
			FulfilledByTest: rec.FulfilledByTest,
			CreatedAt:       rec.CreatedAt,
		})
	}
	return out, nil
}

func (r *INRRepo) UpdateItem(ctx context.Context, item inr.ScheduleItem) error {
	var rec INRScheduleItemRecord
	err := r.db.WithContext(ctx).Scopes(forUser(item.UserID)).
		Where("public_id = ?", item.ID).First(&rec).Error
	if err != nil {
		return mapNotFound(err, inr.ErrNotFound)
	}

	rec.Status = string(item.Status)
	rec.FulfilledByTest = item.FulfilledByTest
	return r.db.WithContext(ctx).Save(&rec).Error
}

func toINRTest(rec INRTestRecord) inr.Test {
	return inr.Test{
		ID:        rec.PublicID,
		UserID:    rec.UserID,
		Value:     rec.Value,
		TestedAt:  rec.TestedAt,
		InRange:   rec.InRange,
		Notes:     rec.Notes,
		CreatedAt: rec.CreatedAt,
	}
}

func toScheduleItemRecord(item inr.ScheduleItem) INRScheduleItemRecord {
	return INRScheduleItemRecord{
		Model: Model{
			PublicID:  item.ID,
			UserID:    item.UserID,
			CreatedAt: item.CreatedAt,
		},
		ScheduleID:      item.ScheduleID,
		DueDate:         item.DueDate,
		Status:          string(item.Status),
		FulfilledByTest: item.FulfilledByTest,
	}
}
