package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"anticoag-tracker/internal/domain/medications"
)

type MedicationsRepo struct {
	db *gorm.DB
}

func NewMedicationsRepo(db *gorm.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

// forUser is the row-isolation scope every query goes through.
func forUser(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

func (r *MedicationsRepo) CreateMedication(ctx context.Context, m medications.Medication) error {
	rec := toMedicationRecord(m)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *MedicationsRepo) UpdateMedication(ctx context.Context, m medications.Medication) error {
	var rec MedicationRecord
	err := r.db.WithContext(ctx).Scopes(forUser(m.UserID)).
		Where("public_id = ?", m.ID).First(&rec).Error
	if err != nil {
		return mapNotFound(err, medications.ErrNotFound)
	}

	rec.Name = m.Name
	rec.Strength = m.Strength
	rec.Unit = m.Unit
	rec.Active = m.Active
	rec.Notes = m.Notes

	return r.db.WithContext(ctx).Save(&rec).Error
}

func (r *MedicationsRepo) GetMedication(ctx context.Context, userID, id string) (medications.Medication, error) {
	var rec MedicationRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).
		Where("public_id = ?", id).First(&rec).Error
	if err != nil {
		return medications.Medication{}, mapNotFound(err, medications.ErrNotFound)
	}
	return toMedication(rec), nil
}

func (r *MedicationsRepo) ListMedications(ctx context.Context, userID string) ([]medications.Medication, error) {
	var recs []MedicationRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).
		Order("created_at ASC").Find(&recs).Error
	if err != nil {
		return nil, err
	}

	out := make([]medications.Medication, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toMedication(rec))
	}
	return out, nil
}

func (r *MedicationsRepo) DeleteMedication(ctx context.Context, userID, id string) error {
	// Load first so the delete hook sees the full record.
	var rec MedicationRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).
		Where("public_id = ?", id).First(&rec).Error
	if err != nil {
		return mapNotFound(err, medications.ErrNotFound)
	}
	return r.db.WithContext(ctx).Delete(&rec).Error
}

func (r *MedicationsRepo) CreatePattern(ctx context.Context, p medications.DosagePattern) error {
	rec := toPatternRecord(p)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *MedicationsRepo) ListPatterns(ctx context.Context, userID, medicationID string) ([]medications.DosagePattern, error) {
	var recs []DosagePatternRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).
		Where("medication_id = ?", medicationID).
		Order("start_date ASC").Find(&recs).Error
	if err != nil {
		return nil, err
	}

	out := make([]medications.DosagePattern, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toPattern(rec))
	}
	return out, nil
}

func (r *MedicationsRepo) DeletePattern(ctx context.Context, userID, id string) error {
	var rec DosagePatternRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).
		Where("public_id = ?", id).First(&rec).Error
	if err != nil {
		return mapNotFound(err, medications.ErrNotFound)
	}
	return r.db.WithContext(ctx).Delete(&rec).Error
}

func (r *MedicationsRepo) CreateLog(ctx context.Context, l medications.IntakeLog) error {
	rec := toLogRecord(l)
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *MedicationsRepo) ListLogs(ctx context.Context, userID, medicationID string, from, to time.Time) ([]medications.IntakeLog, error) {
	var recs []IntakeLogRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).
		Where("medication_id = ?", medicationID).
		Where("taken_at BETWEEN ? AND ?", from, to).
		Order("taken_at DESC").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toLogs(recs), nil
}

func (r *MedicationsRepo) ListLogsByUser(ctx context.Context, userID string, from, to time.Time) ([]medications.IntakeLog, error) {
	var recs []IntakeLogRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).
		Where("taken_at BETWEEN ? AND ?", from, to).
		Order("taken_at DESC").Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toLogs(recs), nil
}

func (r *MedicationsRepo) DeleteLog(ctx context.Context, userID, id string) error {
	var rec IntakeLogRecord
	err := r.db.WithContext(ctx).Scopes(forUser(userID)).
		Where("public_id = ?", id).First(&rec).Error
	if err != nil {
		return mapNotFound(err, medications.ErrNotFound)
	}
	return r.db.WithContext(ctx).Delete(&rec).Error
}

func mapNotFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func toMedicationRecord(m medications.Medication) MedicationRecord {
	return MedicationRecord{
		Model: Model{
			PublicID:  m.ID,
			UserID:    m.UserID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Name:     m.Name,
		Strength: m.Strength,
		Unit:     m.Unit,
		Active:   m.Active,
		Notes:    m.Notes,
	}
}

func toMedication(rec MedicationRecord) medications.Medication {
	return medications.Medication{
		ID:        rec.PublicID,
		UserID:    rec.UserID,
		Name:      rec.Name,
		Strength:  rec.Strength,
		Unit:      rec.Unit,
		Active:    rec.Active,
		Notes:     rec.Notes,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func toPatternRecord(p medications.DosagePattern) DosagePatternRecord {
	return DosagePatternRecord{
		Model: Model{
			PublicID:  p.ID,
			UserID:    p.UserID,
			CreatedAt: p.CreatedAt,
		},
		MedicationID: p.MedicationID,
		CycleDoses:   p.CycleDoses,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
	}
}

func toPattern(rec DosagePatternRecord) medications.DosagePattern {
	return medications.DosagePattern{
		ID:           rec.PublicID,
		UserID:       rec.UserID,
		MedicationID: rec.MedicationID,
		CycleDoses:   rec.CycleDoses,
		StartDate:    rec.StartDate,
		EndDate:      rec.EndDate,
		CreatedAt:    rec.CreatedAt,
	}
}

func toLogRecord(l medications.IntakeLog) IntakeLogRecord {
	return IntakeLogRecord{
		Model: Model{
			PublicID:  l.ID,
			UserID:    l.UserID,
			CreatedAt: l.CreatedAt,
		},
		MedicationID: l.MedicationID,
		TakenAt:      l.TakenAt,
		ActualDose:   l.ActualDose,
		ExpectedDose: l.ExpectedDose,
		Variance:     l.Variance,
		Notes:        l.Notes,
	}
}

func toLogs(recs []IntakeLogRecord) []medications.IntakeLog {
	out := make([]medications.IntakeLog, 0, len(recs))
	for _, rec := range recs {
		out = append(out, medications.IntakeLog{
			ID:           rec.PublicID,
			UserID:       rec.UserID,
			MedicationID: rec.MedicationID,
			TakenAt:      rec.TakenAt,
			ActualDose:   rec.ActualDose,
			ExpectedDose: rec.ExpectedDose,
			Variance:     rec.Variance,
			Notes:        rec.Notes,
			CreatedAt:    rec.CreatedAt,
		})
	}
	return out
}
