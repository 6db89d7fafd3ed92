package inr

import (
	"context"
	"time"
)

// Repository persists INR tests and schedules, scoped per user.
type Repository interface {
	CreateTest(ctx context.Context, t Test) error
	ListTests(ctx context.Context, userID string, from, to time.Time) ([]Test, error)
	DeleteTest(ctx context.Context, userID, id string) error

	GetSchedule(ctx context.Context, userID string) (Schedule, error)
	SaveSchedule(ctx context.Context, s Schedule) error

	// ReplaceItems drops the user's unfulfilled items and stores the new set.
	ReplaceItems(ctx context.Context, userID, scheduleID string, items []ScheduleItem) error
	ListItems(ctx context.Context, userID string) ([]ScheduleItem, error)
	UpdateItem(ctx context.Context, item ScheduleItem) error
}
