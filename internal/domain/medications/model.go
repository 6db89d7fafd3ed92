package medications

import "time"

// Medication is a prescribed anticoagulant tracked by a single user.
type Medication struct {
	ID     string
	UserID string

	Name     string
	Strength string // e.g. "5 mg tablets"
	Unit     string // dose unit, defaults to mg
	Active   bool
	Notes    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DosagePattern is a repeating dose cycle bound to a date window. CycleDoses
// holds one dose per day; alternating-day warfarin schedules are the typical
// shape, e.g. [5, 2.5].
type DosagePattern struct {
	ID           string
	UserID       string
	MedicationID string

	CycleDoses []float64
	StartDate  time.Time
	EndDate    *time.Time // nil = open-ended

	CreatedAt time.Time
}

// IntakeLog records one taken dose. ExpectedDose and Variance are computed
// at write time from the pattern covering TakenAt; both stay nil when no
// pattern covers the date.
type IntakeLog struct {
	ID           string
	UserID       string
	MedicationID string

	TakenAt    time.Time
	ActualDose float64

	ExpectedDose *float64
	Variance     *float64 // actual - expected

	Notes string

	CreatedAt time.Time
}
