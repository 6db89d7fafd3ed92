package medications

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPattern_Covers_Window(t *testing.T) {
	end := day(2026, 3, 10)
	p := DosagePattern{
		CycleDoses: []float64{5},
		StartDate:  day(2026, 3, 1),
		EndDate:    &end,
	}

	if p.Covers(day(2026, 2, 28)) {
		t.Fatalf("expected date before start to be uncovered")
	}
	if !p.Covers(day(2026, 3, 1)) {
		t.Fatalf("expected start date to be covered")
	}
	if !p.Covers(day(2026, 3, 10)) {
		t.Fatalf("expected end date to be covered (inclusive)")
	}
	if p.Covers(day(2026, 3, 11)) {
		t.Fatalf("expected date after end to be uncovered")
	}

	// Instants on the same calendar day count, regardless of clock time.
	if !p.Covers(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)) {
		t.Fatalf("expected late instant on end day to be covered")
	}
}

func TestPattern_Covers_OpenEnded(t *testing.T) {
	p := DosagePattern{
		CycleDoses: []float64{5},
		StartDate:  day(2026, 3, 1),
	}
	if !p.Covers(day(2030, 1, 1)) {
		t.Fatalf("expected open-ended pattern to cover far-future dates")
	}
}

func TestPattern_ExpectedDose_CyclesByDay(t *testing.T) {
	// Alternating warfarin schedule: 5 mg / 2.5 mg.
	p := DosagePattern{
		CycleDoses: []float64{5, 2.5},
		StartDate:  day(2026, 3, 1),
	}

	cases := []struct {
		date time.Time
		want float64
	}{
		{day(2026, 3, 1), 5},
		{day(2026, 3, 2), 2.5},
		{day(2026, 3, 3), 5},
		{day(2026, 3, 8), 2.5}, // day 7, odd offset
	}
	for _, c := range cases {
		got, ok := p.ExpectedDose(c.date)
		if !ok {
			t.Fatalf("expected %s to be covered", c.date.Format("2006-01-02"))
		}
		if got != c.want {
			t.Fatalf("dose on %s: got %v, want %v", c.date.Format("2006-01-02"), got, c.want)
		}
	}

	if _, ok := p.ExpectedDose(day(2026, 2, 28)); ok {
		t.Fatalf("expected no dose before the window")
	}
}

func TestPattern_ExpectedDose_EmptyCycle(t *testing.T) {
	p := DosagePattern{StartDate: day(2026, 3, 1)}
	if _, ok := p.ExpectedDose(day(2026, 3, 2)); ok {
		t.Fatalf("expected empty cycle to yield no dose")
	}
}

func TestResolvePattern_LatestStartWins(t *testing.T) {
	older := DosagePattern{
		ID:         "p-old",
		CycleDoses: []float64{5},
		StartDate:  day(2026, 1, 1),
		CreatedAt:  day(2026, 1, 1),
	}
	newer := DosagePattern{
		ID:         "p-new",
		CycleDoses: []float64{2.5},
		StartDate:  day(2026, 2, 1),
		CreatedAt:  day(2026, 2, 1),
	}

	// Before the newer window starts, the older pattern still governs.
	got, ok := ResolvePattern([]DosagePattern{newer, older}, day(2026, 1, 15))
	if !ok || got.ID != "p-old" {
		t.Fatalf("expected p-old to govern Jan 15, got %q (ok=%v)", got.ID, ok)
	}

	// Once both cover the date, the later start wins.
	got, ok = ResolvePattern([]DosagePattern{older, newer}, day(2026, 2, 15))
	if !ok || got.ID != "p-new" {
		t.Fatalf("expected p-new to govern Feb 15, got %q (ok=%v)", got.ID, ok)
	}
}

func TestResolvePattern_TieBreaksOnCreation(t *testing.T) {
	first := DosagePattern{
		ID:         "p-first",
		CycleDoses: []float64{5},
		StartDate:  day(2026, 2, 1),
		CreatedAt:  time.Date(2026, 1, 30, 9, 0, 0, 0, time.UTC),
	}
	second := DosagePattern{
		ID:         "p-second",
		CycleDoses: []float64{4},
		StartDate:  day(2026, 2, 1),
		CreatedAt:  time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC),
	}

	got, ok := ResolvePattern([]DosagePattern{first, second}, day(2026, 2, 5))
	if !ok || got.ID != "p-second" {
		t.Fatalf("expected most recently created pattern to win the tie, got %q", got.ID)
	}
}

func TestResolvePattern_NoneCovering(t *testing.T) {
	p := DosagePattern{
		CycleDoses: []float64{5},
		StartDate:  day(2026, 3, 1),
	}
	if _, ok := ResolvePattern([]DosagePattern{p}, day(2026, 2, 1)); ok {
		t.Fatalf("expected no governing pattern before every window")
	}
}
