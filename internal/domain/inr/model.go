package inr

import "time"

// Test is one INR lab result. InRange is derived from the user's target
// range at write time so history keeps the range that applied back then.
type Test struct {
	ID     string
	UserID string

	Value    float64
	TestedAt time.Time
	InRange  bool
	Notes    string

	CreatedAt time.Time
}

// Value bounds enforced on every logged test.
const (
	MinValue = 0.5
	MaxValue = 10.0
)

// Schedule is the user's testing cadence. Saving a schedule regenerates the
// dated items a year ahead; fulfilled items survive regeneration.
type Schedule struct {
	ID     string
	UserID string

	CadenceDays int
	StartDate   time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type ItemStatus string

const (
	ItemStatusFuture    ItemStatus = "future"
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusFulfilled ItemStatus = "fulfilled"
)

// ScheduleItem is one dated slot produced by the schedule.
type ScheduleItem struct {
	ID         string
	UserID     string
	ScheduleID string

	DueDate         time.Time
	Status          ItemStatus
	FulfilledByTest string // test id, set when fulfilled

	CreatedAt time.Time
}
