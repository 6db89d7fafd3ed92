package medications

import (
	"context"
	"time"
)

// Repository persists medications and their patterns and logs. Every method
// is scoped to a user; an id belonging to someone else behaves as not found.
type Repository interface {
	CreateMedication(ctx context.Context, m Medication) error
	UpdateMedication(ctx context.Context, m Medication) error
	GetMedication(ctx context.Context, userID, id string) (Medication, error)
	ListMedications(ctx context.Context, userID string) ([]Medication, error)
	DeleteMedication(ctx context.Context, userID, id string) error

	CreatePattern(ctx context.Context, p DosagePattern) error
	ListPatterns(ctx context.Context, userID, medicationID string) ([]DosagePattern, error)
	DeletePattern(ctx context.Context, userID, id string) error

	CreateLog(ctx context.Context, l IntakeLog) error
	ListLogs(ctx context.Context, userID, medicationID string, from, to time.Time) ([]IntakeLog, error)
	ListLogsByUser(ctx context.Context, userID string, from, to time.Time) ([]IntakeLog, error)
	DeleteLog(ctx context.Context, userID, id string) error
}
