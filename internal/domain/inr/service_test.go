package inr

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	tests     map[string]Test
	schedules map[string]Schedule // keyed by user id
	items     map[string]ScheduleItem
}

func newTestRepo() *testRepo {
	return &testRepo{
		tests:     map[string]Test{},
		schedules: map[string]Schedule{},
		items:     map[string]ScheduleItem{},
	}
}

func (r *testRepo) CreateTest(ctx context.Context, t Test) error {
	r.tests[t.ID] = t
	return nil
}

func (r *testRepo) ListTests(ctx context.Context, userID string, from, to time.Time) ([]Test, error) {
	out := make([]Test, 0)
	for _, t := range r.tests {
		if t.UserID != userID {
			continue
		}
		if t.TestedAt.Before(from) || t.TestedAt.After(to) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *testRepo) DeleteTest(ctx context.Context, userID, id string) error {
	t, ok := r.tests[id]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	delete(r.tests, id)
	return nil
}

func (r *testRepo) GetSchedule(ctx context.Context, userID string) (Schedule, error) {
	s, ok := r.schedules[userID]
	if !ok {
		return Schedule{}, ErrNotFound
	}
	return s, nil
}

func (r *testRepo) SaveSchedule(ctx context.Context, s Schedule) error {
	r.schedules[s.UserID] = s
	return nil
}

func (r *testRepo) ReplaceItems(ctx context.Context, userID, scheduleID string, items []ScheduleItem) error {
	for id, item := range r.items {
		if item.UserID == userID && item.Status != ItemStatusFulfilled {
			delete(r.items, id)
		}
	}
	for _, item := range items {
		r.items[item.ID] = item
	}
	return nil
}

func (r *testRepo) ListItems(ctx context.Context, userID string) ([]ScheduleItem, error) {
	out := make([]ScheduleItem, 0)
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *testRepo) UpdateItem(ctx context.Context, item ScheduleItem) error {
	if _, ok := r.items[item.ID]; !ok {
		return ErrNotFound
	}
	r.items[item.ID] = item
	return nil
}

// fixedRanges hands every user the same target range.
type fixedRanges struct {
	low, high float64
}

func (f fixedRanges) TargetRange(ctx context.Context, userID string) (float64, float64, error) {
	return f.low, f.high, nil
}

// -------------------------
// Fixtures
// -------------------------

func newServiceAt(t *testing.T, now time.Time) (*Service, *testRepo) {
	t.Helper()
	repo := newTestRepo()
	svc := NewService(repo, fixedRanges{low: 2.0, high: 3.0})
	svc.now = func() time.Time { return now }
	return svc, repo
}

func mustCreateTest(t *testing.T, svc *Service, userID string, value float64, at time.Time) Test {
	t.Helper()
	test, err := svc.CreateTest(context.Background(), userID, CreateTestInput{Value: value, TestedAt: at})
	if err != nil {
		t.Fatalf("CreateTest error: %v", err)
	}
	return test
}

// -------------------------
// Tests
// -------------------------

func TestService_CreateTest_FlagsRange(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newServiceAt(t, now)

	in := mustCreateTest(t, svc, "user-1", 2.5, now)
	if !in.InRange {
		t.Fatalf("expected 2.5 to flag in range for 2.0-3.0")
	}

	out := mustCreateTest(t, svc, "user-1", 3.5, now)
	if out.InRange {
		t.Fatalf("expected 3.5 to flag out of range for 2.0-3.0")
	}

	// Boundaries are inclusive.
	edge := mustCreateTest(t, svc, "user-1", 3.0, now)
	if !edge.InRange {
		t.Fatalf("expected the range boundary to count as in range")
	}
}

func TestService_CreateTest_RejectsImplausibleValues(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newServiceAt(t, now)

	for _, v := range []float64{0.3, 12, -1} {
		if _, err := svc.CreateTest(context.Background(), "user-1", CreateTestInput{Value: v, TestedAt: now}); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("value %v: expected ErrInvalidInput, got %v", v, err)
		}
	}

	if _, err := svc.CreateTest(context.Background(), "user-1", CreateTestInput{Value: 2.5}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected zero TestedAt to be rejected, got %v", err)
	}
}

func TestService_SaveSchedule_GeneratesYearOfItems(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, repo := newServiceAt(t, now)

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sched, err := svc.SaveSchedule(context.Background(), "user-1", SaveScheduleInput{
		CadenceDays: 14,
		StartDate:   start,
	})
	if err != nil {
		t.Fatalf("SaveSchedule error: %v", err)
	}
	if sched.CadenceDays != 14 {
		t.Fatalf("expected cadence 14, got %d", sched.CadenceDays)
	}

	items, err := repo.ListItems(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListItems error: %v", err)
	}
	// Every 14 days from start through one year out, start day included.
	if len(items) != 27 {
		t.Fatalf("expected 27 items for a 14-day cadence over a year, got %d", len(items))
	}
	for _, item := range items {
		if item.Status != ItemStatusFuture {
			t.Fatalf("expected freshly generated items to be future, got %s", item.Status)
		}
	}
}

func TestService_SaveSchedule_Validation(t *testing.T) {
	svc, _ := newServiceAt(t, time.Now())

	_, err := svc.SaveSchedule(context.Background(), "user-1", SaveScheduleInput{CadenceDays: 0, StartDate: time.Now()})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected zero cadence to be rejected, got %v", err)
	}
	_, err = svc.SaveSchedule(context.Background(), "user-1", SaveScheduleInput{CadenceDays: 7})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected zero start date to be rejected, got %v", err)
	}
}

func TestService_SaveSchedule_RegenerationKeepsFulfilled(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, repo := newServiceAt(t, now)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.SaveSchedule(context.Background(), "user-1", SaveScheduleInput{CadenceDays: 7, StartDate: start}); err != nil {
		t.Fatalf("SaveSchedule error: %v", err)
	}

	// A test logged on the start day fulfills the first item.
	test := mustCreateTest(t, svc, "user-1", 2.4, now)

	if _, err := svc.SaveSchedule(context.Background(), "user-1", SaveScheduleInput{CadenceDays: 14, StartDate: start}); err != nil {
		t.Fatalf("SaveSchedule regenerate error: %v", err)
	}

	items, err := repo.ListItems(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListItems error: %v", err)
	}

	fulfilled := 0
	for _, item := range items {
		if item.Status == ItemStatusFulfilled {
			fulfilled++
			if item.FulfilledByTest != test.ID {
				t.Fatalf("expected fulfilled item to reference test %s, got %s", test.ID, item.FulfilledByTest)
			}
		}
	}
	if fulfilled != 1 {
		t.Fatalf("expected the fulfilled item to survive regeneration, found %d", fulfilled)
	}
}

func TestService_ListItems_ActivatesUpcoming(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newServiceAt(t, now)

	start := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	if _, err := svc.SaveSchedule(context.Background(), "user-1", SaveScheduleInput{CadenceDays: 7, StartDate: start}); err != nil {
		t.Fatalf("SaveSchedule error: %v", err)
	}

	items, err := svc.ListItems(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListItems error: %v", err)
	}
	if len(items) < 3 {
		t.Fatalf("expected at least 3 items, got %d", len(items))
	}

	// March 3 falls inside the seven-day window; March 10 and later do not.
	if items[0].Status != ItemStatusPending {
		t.Fatalf("expected the first item to activate, got %s", items[0].Status)
	}
	if items[1].Status != ItemStatusFuture {
		t.Fatalf("expected the second item to stay future, got %s", items[1].Status)
	}

	// Items come back in due date order.
	for i := 1; i < len(items); i++ {
		if items[i].DueDate.Before(items[i-1].DueDate) {
			t.Fatalf("expected items sorted by due date")
		}
	}
}

func TestService_CreateTest_FulfillsNearestPending(t *testing.T) {
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	svc, repo := newServiceAt(t, now)

	start := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	if _, err := svc.SaveSchedule(context.Background(), "user-1", SaveScheduleInput{CadenceDays: 7, StartDate: start}); err != nil {
		t.Fatalf("SaveSchedule error: %v", err)
	}

	// Tested a day before the due date: within the slack window.
	test := mustCreateTest(t, svc, "user-1", 2.6, now)

	items, err := repo.ListItems(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListItems error: %v", err)
	}

	var first ScheduleItem
	for _, item := range items {
		if first.ID == "" || item.DueDate.Before(first.DueDate) {
			first = item
		}
	}
	if first.Status != ItemStatusFulfilled {
		t.Fatalf("expected the due item to be fulfilled, got %s", first.Status)
	}
	if first.FulfilledByTest != test.ID {
		t.Fatalf("expected item fulfilled by test %s, got %s", test.ID, first.FulfilledByTest)
	}
}

func TestService_CreateTest_OutsideSlackLeavesItemsAlone(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, repo := newServiceAt(t, now)

	// Due date four days out: activates, but the test misses the slack window.
	start := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if _, err := svc.SaveSchedule(context.Background(), "user-1", SaveScheduleInput{CadenceDays: 7, StartDate: start}); err != nil {
		t.Fatalf("SaveSchedule error: %v", err)
	}

	mustCreateTest(t, svc, "user-1", 2.6, now)

	items, err := repo.ListItems(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListItems error: %v", err)
	}
	for _, item := range items {
		if item.Status == ItemStatusFulfilled {
			t.Fatalf("expected no item fulfilled by a test outside the slack window")
		}
	}
}

func TestService_Report_Trend(t *testing.T) {
	now := time.Date(2026, 3, 30, 10, 0, 0, 0, time.UTC)
	svc, _ := newServiceAt(t, now)

	at := func(day int) time.Time {
		return time.Date(2026, 3, day, 9, 0, 0, 0, time.UTC)
	}

	mustCreateTest(t, svc, "user-1", 2.0, at(1))
	mustCreateTest(t, svc, "user-1", 2.1, at(8))
	mustCreateTest(t, svc, "user-1", 2.6, at(15))
	mustCreateTest(t, svc, "user-1", 2.8, at(22))

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rep, err := svc.Report(context.Background(), "user-1", from, now)
	if err != nil {
		t.Fatalf("Report error: %v", err)
	}

	if rep.Tests != 4 {
		t.Fatalf("expected 4 tests, got %d", rep.Tests)
	}
	if rep.InRange != 4 || rep.InRangeRate != 1 {
		t.Fatalf("expected all tests in range, got %d (rate %v)", rep.InRange, rep.InRangeRate)
	}
	// Newer half mean 2.7 vs older half 2.05: rising.
	if rep.Trend != "rising" {
		t.Fatalf("expected rising trend, got %s", rep.Trend)
	}
	if rep.Latest == nil || rep.Latest.Value != 2.8 {
		t.Fatalf("expected latest test 2.8, got %+v", rep.Latest)
	}
}

func TestService_Report_Empty(t *testing.T) {
	svc, _ := newServiceAt(t, time.Now())

	rep, err := svc.Report(context.Background(), "user-1", time.Now().AddDate(0, -3, 0), time.Now())
	if err != nil {
		t.Fatalf("Report error: %v", err)
	}
	if rep.Tests != 0 || rep.Latest != nil {
		t.Fatalf("expected empty report, got %+v", rep)
	}
	if rep.Trend != "stable" {
		t.Fatalf("expected stable trend on empty history, got %s", rep.Trend)
	}
}
