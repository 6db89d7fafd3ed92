package inr

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// RangeSource exposes a user's INR target range. Implemented by the users
// service; kept as a small interface to avoid an import cycle.
type RangeSource interface {
	TargetRange(ctx context.Context, userID string) (low, high float64, err error)
}

// Items inside this window of today move from future to pending.
const activationWindowDays = 7

// A test fulfills the nearest pending item due within this many days.
const fulfillmentSlackDays = 3

type Service struct {
	repo   Repository
	ranges RangeSource
	now    func() time.Time
}

func NewService(repo Repository, ranges RangeSource) *Service {
	return &Service{
		repo:   repo,
		ranges: ranges,
		now:    time.Now,
	}
}

type CreateTestInput struct {
	Value    float64
	TestedAt time.Time
	Notes    string
}

// CreateTest logs a lab result, flags it against the user's target range and
// fulfills the nearest pending schedule item.
func (s *Service) CreateTest(ctx context.Context, userID string, in CreateTestInput) (Test, error) {
	if strings.TrimSpace(userID) == "" || in.TestedAt.IsZero() {
		return Test{}, ErrInvalidInput
	}
	if in.Value < MinValue || in.Value > MaxValue {
		return Test{}, ErrInvalidInput
	}

	low, high, err := s.ranges.TargetRange(ctx, userID)
	if err != nil {
		return Test{}, err
	}

	t := Test{
		ID:        uuid.NewString(),
		UserID:    userID,
		Value:     in.Value,
		TestedAt:  in.TestedAt,
		InRange:   in.Value >= low && in.Value <= high,
		Notes:     strings.TrimSpace(in.Notes),
		CreatedAt: s.now(),
	}

	if err := s.repo.CreateTest(ctx, t); err != nil {
		return Test{}, err
	}

	if err := s.fulfillNearestPending(ctx, userID, t); err != nil {
		return Test{}, err
	}

	return t, nil
}

func (s *Service) ListTests(ctx context.Context, userID string, from, to time.Time) ([]Test, error) {
	return s.repo.ListTests(ctx, userID, from, to)
}

func (s *Service) DeleteTest(ctx context.Context, userID, id string) error {
	return s.repo.DeleteTest(ctx, userID, id)
}

type SaveScheduleInput struct {
	CadenceDays int
	StartDate   time.Time
}

// SaveSchedule upserts the user's cadence and regenerates dated items one
// year ahead. Fulfilled items are kept; everything else is replaced.
func (s *Service) SaveSchedule(ctx context.Context, userID string, in SaveScheduleInput) (Schedule, error) {
	if in.CadenceDays < 1 || in.StartDate.IsZero() {
		return Schedule{}, ErrInvalidInput
	}

	now := s.now()
	sched, err := s.repo.GetSchedule(ctx, userID)
	switch {
	case err == nil:
		sched.CadenceDays = in.CadenceDays
		sched.StartDate = in.StartDate
		sched.UpdatedAt = now
	case errors.Is(err, ErrNotFound):
		sched = Schedule{
			ID:          uuid.NewString(),
			UserID:      userID,
			CadenceDays: in.CadenceDays,
			StartDate:   in.StartDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	default:
		return Schedule{}, err
	}

	if err := s.repo.SaveSchedule(ctx, sched); err != nil {
		return Schedule{}, err
	}

	items := s.buildItems(sched)
	if err := s.repo.ReplaceItems(ctx, userID, sched.ID, items); err != nil {
		return Schedule{}, err
	}

	return sched, nil
}

func (s *Service) GetSchedule(ctx context.Context, userID string) (Schedule, error) {
	return s.repo.GetSchedule(ctx, userID)
}

// ListItems returns the schedule items, activating those due within the next
// seven days first.
func (s *Service) ListItems(ctx context.Context, userID string) ([]ScheduleItem, error) {
	if err := s.activateUpcoming(ctx, userID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].DueDate.Before(items[j].DueDate)
	})
	return items, nil
}

// buildItems produces one item per cadence step from the start date through
// one year out.
func (s *Service) buildItems(sched Schedule) []ScheduleItem {
	var items []ScheduleItem

	start := dateOnly(sched.StartDate)
	end := start.AddDate(1, 0, 0)
	now := s.now()

	for d := start; !d.After(end); d = d.AddDate(0, 0, sched.CadenceDays) {
		items = append(items, ScheduleItem{
			ID:         uuid.NewString(),
			UserID:     sched.UserID,
			ScheduleID: sched.ID,
			DueDate:    d,
			Status:     ItemStatusFuture,
			CreatedAt:  now,
		})
	}

	return items
}

func (s *Service) activateUpcoming(ctx context.Context, userID string) error {
	items, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return err
	}

	until := dateOnly(s.now()).AddDate(0, 0, activationWindowDays)
	for _, item := range items {
		if item.Status != ItemStatusFuture {
			continue
		}
		if dateOnly(item.DueDate).After(until) {
			continue
		}
		item.Status = ItemStatusPending
		if err := s.repo.UpdateItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// fulfillNearestPending marks the pending item closest to the test date as
// fulfilled, if one falls within the slack window.
func (s *Service) fulfillNearestPending(ctx context.Context, userID string, t Test) error {
	if err := s.activateUpcoming(ctx, userID); err != nil {
		return err
	}

	items, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return err
	}

	testDay := dateOnly(t.TestedAt)
	var best *ScheduleItem
	bestDist := fulfillmentSlackDays + 1

	for i := range items {
		item := items[i]
		if item.Status != ItemStatusPending {
			continue
		}
		dist := daysApart(dateOnly(item.DueDate), testDay)
		if dist < bestDist {
			bestDist = dist
			best = &items[i]
		}
	}

	if best == nil {
		return nil
	}

	best.Status = ItemStatusFulfilled
	best.FulfilledByTest = t.ID
	return s.repo.UpdateItem(ctx, *best)
}

// Report summarizes results over a range for the INR dashboard.
type Report struct {
	Tests       int
	InRange     int
	InRangeRate float64
	Latest      *Test
	Trend       string // rising | falling | stable
}

func (s *Service) Report(ctx context.Context, userID string, from, to time.Time) (Report, error) {
	tests, err := s.repo.ListTests(ctx, userID, from, to)
	if err != nil {
		return Report{}, err
	}

	sort.Slice(tests, func(i, j int) bool {
		return tests[i].TestedAt.Before(tests[j].TestedAt)
	})

	rep := Report{Tests: len(tests), Trend: "stable"}
	if len(tests) == 0 {
		return rep, nil
	}

	for _, t := range tests {
		if t.InRange {
			rep.InRange++
		}
	}
	rep.InRangeRate = float64(rep.InRange) / float64(len(tests))

	latest := tests[len(tests)-1]
	rep.Latest = &latest

	if len(tests) >= 2 {
		half := len(tests) / 2
		older := mean(tests[:half])
		newer := mean(tests[half:])
		switch {
		case newer-older > 0.2:
			rep.Trend = "rising"
		case older-newer > 0.2:
			rep.Trend = "falling"
		}
	}

	return rep, nil
}

func mean(tests []Test) float64 {
	if len(tests) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tests {
		sum += t.Value
	}
	return sum / float64(len(tests))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysApart(a, b time.Time) int {
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
