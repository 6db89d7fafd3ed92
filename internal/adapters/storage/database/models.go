package database

import (
	"time"

	"gorm.io/gorm"
)

// Model is the shared record base: numeric primary key for joins, public
// UUID for the API surface, owner column for row isolation, and gorm's
// DeletedAt as the global soft-delete filter.
type Model struct {
	ID        uint   `gorm:"primarykey"`
	PublicID  string `gorm:"size:36;uniqueIndex;not null"`
	UserID    string `gorm:"size:36;index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type UserRecord struct {
	Model

	Provider       string `gorm:"size:50;not null;uniqueIndex:idx_users_identity,priority:1"`
	ProviderUserID string `gorm:"size:191;not null;uniqueIndex:idx_users_identity,priority:2"`

	Email       string `gorm:"size:255"`
	DisplayName string `gorm:"size:255"`

	INRLow  float64 `gorm:"check:inr_low > 0"`
	INRHigh float64 `gorm:"check:inr_high > inr_low"`
}

func (UserRecord) TableName() string { return "users" }

type MedicationRecord struct {
	Model

	Name     string `gorm:"size:255;not null"`
	Strength string `gorm:"size:100"`
	Unit     string `gorm:"size:20;default:'mg'"`
	Active   bool   `gorm:"default:true"`
	Notes    string
}

func (MedicationRecord) TableName() string { return "medications" }

type DosagePatternRecord struct {
	Model

	MedicationID string `gorm:"size:36;index;not null"`

	CycleDoses []float64  `gorm:"serializer:json;not null"`
	StartDate  time.Time  `gorm:"type:date;not null"`
	EndDate    *time.Time `gorm:"type:date"`
}

func (DosagePatternRecord) TableName() string { return "medication_dosage_patterns" }

type IntakeLogRecord struct {
	Model

	MedicationID string `gorm:"size:36;index;not null"`

	TakenAt    time.Time `gorm:"index;not null"`
	ActualDose float64   `gorm:"check:actual_dose >= 0"`

	ExpectedDose *float64
	Variance     *float64

	Notes string
}

func (IntakeLogRecord) TableName() string { return "medication_logs" }

type INRTestRecord struct {
	Model

	Value    float64   `gorm:"check:value >= 0.5 AND value <= 10"`
	TestedAt time.Time `gorm:"index;not null"`
	InRange  bool
	Notes    string
}

func (INRTestRecord) TableName() string { return "inr_tests" }

type INRScheduleRecord struct {
	Model

	CadenceDays int       `gorm:"check:cadence_days >= 1"`
	StartDate   time.Time `gorm:"type:date;not null"`
}

func (INRScheduleRecord) TableName() string { return "inr_schedules" }

type INRScheduleItemRecord struct {
	Model

	ScheduleID string `gorm:"size:36;index;not null"`

	DueDate         time.Time `gorm:"type:date;not null;index"`
	Status          string    `gorm:"size:20;not null;default:'future';index"`
	FulfilledByTest string    `gorm:"size:36"`
}

func (INRScheduleItemRecord) TableName() string { return "inr_schedule_items" }

// AuditEntry is append-only and never audited itself; it carries no
// DeletedAt on purpose.
type AuditEntry struct {
	ID       uint   `gorm:"primarykey"`
	PublicID string `gorm:"size:36;uniqueIndex;not null"`
	UserID   string `gorm:"size:36;index;not null"`

	EntityType string `gorm:"size:50;not null"`
	EntityID   string `gorm:"size:36;not null"`
	Action     string `gorm:"size:10;not null"`
	Snapshot   string

	CreatedAt time.Time
}

func (AuditEntry) TableName() string { return "audit_records" }

type RefreshTokenRecord struct {
	ID     uint   `gorm:"primarykey"`
	Digest string `gorm:"size:64;uniqueIndex;not null"`
	UserID string `gorm:"size:36;index;not null"`

	ExpiresAt  time.Time `gorm:"not null"`
	RevokedAt  *time.Time
	ReplacedBy string `gorm:"size:64"`

	CreatedAt time.Time
}

func (RefreshTokenRecord) TableName() string { return "refresh_tokens" }
