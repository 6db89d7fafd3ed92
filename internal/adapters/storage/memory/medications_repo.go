package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"anticoag-tracker/internal/domain/audit"
	"anticoag-tracker/internal/domain/medications"
)

type medicationRepo struct {
	s *Store
}

func NewMedicationRepo(s *Store) medications.Repository {
	return &medicationRepo{s: s}
}

func (r *medicationRepo) CreateMedication(ctx context.Context, m medications.Medication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("medication id required")
	}
	if _, exists := r.s.medications[m.ID]; exists {
		return errors.New("medication already exists")
	}
	r.s.medications[m.ID] = m
	r.s.recordAudit(audit.ActionCreate, "medication", m.ID, m.UserID, m)
	return nil
}

func (r *medicationRepo) UpdateMedication(ctx context.Context, m medications.Medication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.medications[m.ID]
	if !ok || cur.UserID != m.UserID {
		return medications.ErrNotFound
	}
	r.s.medications[m.ID] = m
	r.s.recordAudit(audit.ActionUpdate, "medication", m.ID, m.UserID, m)
	return nil
}

func (r *medicationRepo) GetMedication(ctx context.Context, userID, id string) (medications.Medication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.medications[id]
	if !ok || m.UserID != userID {
		return medications.Medication{}, medications.ErrNotFound
	}
	return m, nil
}

func (r *medicationRepo) ListMedications(ctx context.Context, userID string) ([]medications.Medication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]medications.Medication, 0)
	for _, m := range r.s.medications {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *medicationRepo) DeleteMedication(ctx context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.medications[id]
	if !ok || m.UserID != userID {
		return medications.ErrNotFound
	}
	delete(r.s.medications, id)
	r.s.recordAudit(audit.ActionDelete, "medication", id, userID, nil)
	return nil
}

func (r *medicationRepo) CreatePattern(ctx context.Context, p medications.DosagePattern) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("pattern id required")
	}
	r.s.patterns[p.ID] = p
	r.s.recordAudit(audit.ActionCreate, "dosage_pattern", p.ID, p.UserID, p)
	return nil
}

func (r *medicationRepo) ListPatterns(ctx context.Context, userID, medicationID string) ([]medications.DosagePattern, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]medications.DosagePattern, 0)
	for _, p := range r.s.patterns {
		if p.UserID == userID && p.MedicationID == medicationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

func (r *medicationRepo) DeletePattern(ctx context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.patterns[id]
	if !ok || p.UserID != userID {
		return medications.ErrNotFound
	}
	delete(r.s.patterns, id)
	r.s.recordAudit(audit.ActionDelete, "dosage_pattern", id, userID, nil)
	return nil
}

func (r *medicationRepo) CreateLog(ctx context.Context, l medications.IntakeLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(l.ID) == "" {
		return errors.New("log id required")
	}
	r.s.logs[l.ID] = l
	r.s.recordAudit(audit.ActionCreate, "medication_log", l.ID, l.UserID, l)
	return nil
}

func (r *medicationRepo) ListLogs(ctx context.Context, userID, medicationID string, from, to time.Time) ([]medications.IntakeLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]medications.IntakeLog, 0)
	for _, l := range r.s.logs {
		if l.UserID == userID && l.MedicationID == medicationID && inWindow(l.TakenAt, from, to) {
			out = append(out, l)
		}
	}
	sortLogs(out)
	return out, nil
}

func (r *medicationRepo) ListLogsByUser(ctx context.Context, userID string, from, to time.Time) ([]medications.IntakeLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]medications.IntakeLog, 0)
	for _, l := range r.s.logs {
		if l.UserID == userID && inWindow(l.TakenAt, from, to) {
			out = append(out, l)
		}
	}
	sortLogs(out)
	return out, nil
}

func (r *medicationRepo) DeleteLog(ctx context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.logs[id]
	if !ok || l.UserID != userID {
		return medications.ErrNotFound
	}
	delete(r.s.logs, id)
	r.s.recordAudit(audit.ActionDelete, "medication_log", id, userID, nil)
	return nil
}

func inWindow(at, from, to time.Time) bool {
	return !at.Before(from) && !at.After(to)
}

// sortLogs orders newest first, same as the database adapter.
func sortLogs(logs []medications.IntakeLog) {
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].TakenAt.After(logs[j].TakenAt)
	})
}
