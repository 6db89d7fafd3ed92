package medications

import "time"

// Covers reports whether the pattern window contains the given date.
// Windows compare on calendar days, not instants.
func (p DosagePattern) Covers(date time.Time) bool {
	d := dateOnly(date)
	if d.Before(dateOnly(p.StartDate)) {
		return false
	}
	if p.EndDate != nil && d.After(dateOnly(*p.EndDate)) {
		return false
	}
	return true
}

// ExpectedDose returns the cycle dose for the given date, or false when the
// date falls outside the window or the cycle is empty.
func (p DosagePattern) ExpectedDose(date time.Time) (float64, bool) {
	if len(p.CycleDoses) == 0 || !p.Covers(date) {
		return 0, false
	}
	days := daysBetween(p.StartDate, date)
	return p.CycleDoses[days%len(p.CycleDoses)], true
}

// ResolvePattern picks the pattern that governs a date. When windows overlap,
// the latest start date wins; ties break on creation time so the resolution
// stays deterministic.
func ResolvePattern(patterns []DosagePattern, date time.Time) (DosagePattern, bool) {
	var winner DosagePattern
	found := false

	for _, p := range patterns {
		if !p.Covers(date) {
			continue
		}
		if !found {
			winner = p
			found = true
			continue
		}
		ws := dateOnly(winner.StartDate)
		ps := dateOnly(p.StartDate)
		if ps.After(ws) || (ps.Equal(ws) && p.CreatedAt.After(winner.CreatedAt)) {
			winner = p
		}
	}

	return winner, found
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(start, end time.Time) int {
	return int(dateOnly(end).Sub(dateOnly(start)).Hours() / 24)
}
