package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"anticoag-tracker/internal/domain/audit"
	"anticoag-tracker/internal/domain/inr"
)

type inrRepo struct {
	s *Store
}

func NewINRRepo(s *Store) inr.Repository {
	return &inrRepo{s: s}
}

func (r *inrRepo) CreateTest(ctx context.Context, t inr.Test) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(t.ID) == "" {
		return errors.New("test id required")
	}
	r.s.tests[t.ID] = t
	r.s.recordAudit(audit.ActionCreate, "inr_test", t.ID, t.UserID, t)
	return nil
}

func (r *inrRepo) ListTests(ctx context.Context, userID string, from, to time.Time) ([]inr.Test, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]inr.Test, 0)
	for _, t := range r.s.tests {
		if t.UserID == userID && inWindow(t.TestedAt, from, to) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TestedAt.After(out[j].TestedAt)
	})
	return out, nil
}

func (r *inrRepo) DeleteTest(ctx context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tests[id]
	if !ok || t.UserID != userID {
		return inr.ErrNotFound
	}
	delete(r.s.tests, id)
	r.s.recordAudit(audit.ActionDelete, "inr_test", id, userID, nil)
	return nil
}

func (r *inrRepo) GetSchedule(ctx context.Context, userID string) (inr.Schedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	s, ok := r.s.schedules[userID]
	if !ok {
		return inr.Schedule{}, inr.ErrNotFound
	}
	return s, nil
}

func (r *inrRepo) SaveSchedule(ctx context.Context, s inr.Schedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(s.UserID) == "" {
		return errors.New("schedule user id required")
	}
	action := audit.ActionUpdate
	if _, exists := r.s.schedules[s.UserID]; !exists {
		action = audit.ActionCreate
	}
	r.s.schedules[s.UserID] = s
	r.s.recordAudit(action, "inr_schedule", s.ID, s.UserID, s)
	return nil
}

func (r *inrRepo) ReplaceItems(ctx context.Context, userID, scheduleID string, items []inr.ScheduleItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, item := range r.s.items {
		if item.UserID == userID && item.Status != inr.ItemStatusFulfilled {
			delete(r.s.items, id)
		}
	}
	for _, item := range items {
		r.s.items[item.ID] = item
	}
	return nil
}

func (r *inrRepo) ListItems(ctx context.Context, userID string) ([]inr.ScheduleItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]inr.ScheduleItem, 0)
	for _, item := range r.s.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

func (r *inrRepo) UpdateItem(ctx context.Context, item inr.ScheduleItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.items[item.ID]
	if !ok || cur.UserID != item.UserID {
		return inr.ErrNotFound
	}
	r.s.items[item.ID] = item
	return nil
}
