package medications

import (
	"context"
	"errors"
	"math"
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

type CreateMedicationInput struct {
	Name     string
	Strength string
	Unit     string
	Notes    string
}

func (s *Service) CreateMedication(ctx context.Context, userID string, in CreateMedicationInput) (Medication, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(in.Name) == "" {
		return Medication{}, ErrInvalidInput
	}

	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = "mg"
	}

	now := s.now()
	m := Medication{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      strings.TrimSpace(in.Name),
		Strength:  strings.TrimSpace(in.Strength),
		Unit:      unit,
		Active:    true,
		Notes:     strings.TrimSpace(in.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateMedication(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

type UpdateMedicationInput struct {
	// Pointers for PATCH semantics: nil leaves the field alone.
	Name     *string
	Strength *string
	Notes    *string
	Active   *bool
}

func (s *Service) UpdateMedication(ctx context.Context, userID, id string, in UpdateMedicationInput) (Medication, error) {
	m, err := s.repo.GetMedication(ctx, userID, id)
	if err != nil {
		return Medication{}, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return Medication{}, ErrInvalidInput
		}
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.Strength != nil {
		m.Strength = strings.TrimSpace(*in.Strength)
	}
	if in.Notes != nil {
		m.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Active != nil {
		m.Active = *in.Active
	}

	m.UpdatedAt = s.now()
	if err := s.repo.UpdateMedication(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) GetMedication(ctx context.Context, userID, id string) (Medication, error) {
	return s.repo.GetMedication(ctx, userID, id)
}

func (s *Service) ListMedications(ctx context.Context, userID string) ([]Medication, error) {
	return s.repo.ListMedications(ctx, userID)
}

func (s *Service) DeleteMedication(ctx context.Context, userID, id string) error {
	return s.repo.DeleteMedication(ctx, userID, id)
}

type CreatePatternInput struct {
	CycleDoses []float64
	StartDate  time.Time
	EndDate    *time.Time
}

func (s *Service) CreatePattern(ctx context.Context, userID, medicationID string, in CreatePatternInput) (DosagePattern, error) {
	if len(in.CycleDoses) == 0 || in.StartDate.IsZero() {
		return DosagePattern{}, ErrInvalidInput
	}
	for _, d := range in.CycleDoses {
		if d < 0 {
			return DosagePattern{}, ErrInvalidInput
		}
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return DosagePattern{}, ErrInvalidInput
	}

	// Ownership check; unknown medication surfaces as not found.
	if _, err := s.repo.GetMedication(ctx, userID, medicationID); err != nil {
		return DosagePattern{}, err
	}

	p := DosagePattern{
		ID:           uuid.NewString(),
		UserID:       userID,
		MedicationID: medicationID,
		CycleDoses:   in.CycleDoses,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		CreatedAt:    s.now(),
	}

	if err := s.repo.CreatePattern(ctx, p); err != nil {
		return DosagePattern{}, err
	}
	return p, nil
}

func (s *Service) ListPatterns(ctx context.Context, userID, medicationID string) ([]DosagePattern, error) {
	if _, err := s.repo.GetMedication(ctx, userID, medicationID); err != nil {
		return nil, err
	}
	return s.repo.ListPatterns(ctx, userID, medicationID)
}

func (s *Service) DeletePattern(ctx context.Context, userID, id string) error {
	return s.repo.DeletePattern(ctx, userID, id)
}

type CreateLogInput struct {
	TakenAt    time.Time
	ActualDose float64
	Notes      string
}

// CreateLog stores a taken dose. Expected dose and variance come from the
// pattern governing the intake date; a log outside every pattern window is
// stored without them.
func (s *Service) CreateLog(ctx context.Context, userID, medicationID string, in CreateLogInput) (IntakeLog, error) {
	if in.TakenAt.IsZero() || in.ActualDose < 0 {
		return IntakeLog{}, ErrInvalidInput
	}

	if _, err := s.repo.GetMedication(ctx, userID, medicationID); err != nil {
		return IntakeLog{}, err
	}

	patterns, err := s.repo.ListPatterns(ctx, userID, medicationID)
	if err != nil {
		return IntakeLog{}, err
	}

	l := IntakeLog{
		ID:           uuid.NewString(),
		UserID:       userID,
		MedicationID: medicationID,
		TakenAt:      in.TakenAt,
		ActualDose:   in.ActualDose,
		Notes:        strings.TrimSpace(in.Notes),
		CreatedAt:    s.now(),
	}

	if p, ok := ResolvePattern(patterns, in.TakenAt); ok {
		if expected, ok := p.ExpectedDose(in.TakenAt); ok {
			variance := in.ActualDose - expected
			l.ExpectedDose = &expected
			l.Variance = &variance
		}
	}

	if err := s.repo.CreateLog(ctx, l); err != nil {
		return IntakeLog{}, err
	}
	return l, nil
}

func (s *Service) ListLogs(ctx context.Context, userID, medicationID string, from, to time.Time) ([]IntakeLog, error) {
	if _, err := s.repo.GetMedication(ctx, userID, medicationID); err != nil {
		return nil, err
	}
	return s.repo.ListLogs(ctx, userID, medicationID, from, to)
}

// ListRecentLogs returns intakes across all medications, for overview pages.
func (s *Service) ListRecentLogs(ctx context.Context, userID string, from, to time.Time) ([]IntakeLog, error) {
	return s.repo.ListLogsByUser(ctx, userID, from, to)
}

func (s *Service) DeleteLog(ctx context.Context, userID, id string) error {
	return s.repo.DeleteLog(ctx, userID, id)
}

// MedicationAdherence summarizes dose variance for one medication.
type MedicationAdherence struct {
	MedicationID   string
	MedicationName string

	Logs         int     // logged intakes in range
	WithExpected int     // logs a pattern covered
	OnPattern    int     // logs matching the expected dose exactly
	MeanVariance float64 // mean of (actual - expected) over covered logs
	MaxAbsVar    float64
}

// doseEpsilon absorbs float noise when comparing doses in mg.
const doseEpsilon = 1e-9

// AdherenceReport aggregates variance per medication over a date range.
func (s *Service) AdherenceReport(ctx context.Context, userID string, from, to time.Time) ([]MedicationAdherence, error) {
	meds, err := s.repo.ListMedications(ctx, userID)
	if err != nil {
		return nil, err
	}
	logs, err := s.repo.ListLogsByUser(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	byMed := make(map[string]*MedicationAdherence, len(meds))
	order := make([]string, 0, len(meds))
	for _, m := range meds {
		byMed[m.ID] = &MedicationAdherence{MedicationID: m.ID, MedicationName: m.Name}
		order = append(order, m.ID)
	}

	for _, l := range logs {
		agg, ok := byMed[l.MedicationID]
		if !ok {
			continue
		}
		agg.Logs++
		if l.Variance == nil {
			continue
		}
		agg.WithExpected++
		agg.MeanVariance += *l.Variance
		if abs := math.Abs(*l.Variance); abs > agg.MaxAbsVar {
			agg.MaxAbsVar = abs
		}
		if math.Abs(*l.Variance) < doseEpsilon {
			agg.OnPattern++
		}
	}

	out := make([]MedicationAdherence, 0, len(order))
	for _, id := range order {
		agg := byMed[id]
		if agg.WithExpected > 0 {
			agg.MeanVariance /= float64(agg.WithExpected)
		}
		out = append(out, *agg)
	}
	return out, nil
}
