package database

import (
	"fmt"
	"log/slog"
	"sort"

	"gorm.io/gorm"

	"anticoag-tracker/internal/domain/users"
)

// MigrationRecord tracks which registered migrations have run.
type MigrationRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt int64  `gorm:"autoCreateTime"`
}

type migration struct {
	ID string
	Up func(*gorm.DB) error
}

var migrations = map[string]migration{}

func registerMigration(id string, up func(*gorm.DB) error) {
	migrations[id] = migration{ID: id, Up: up}
}

func init() {
	// Older rows predate the target-range columns; give them the defaults.
	registerMigration("202505170001_backfill_inr_target_range", func(db *gorm.DB) error {
		return db.Model(&UserRecord{}).
			Where("inr_low <= 0 OR inr_high <= 0").
			Updates(map[string]any{
				"inr_low":  users.DefaultINRLow,
				"inr_high": users.DefaultINRHigh,
			}).Error
	})
}

// Migrate auto-migrates the schema, then runs any registered migrations that
// have not been recorded yet.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&UserRecord{},
		&MedicationRecord{},
		&DosagePatternRecord{},
		&IntakeLogRecord{},
		&INRTestRecord{},
		&INRScheduleRecord{},
		&INRScheduleItemRecord{},
		&AuditEntry{},
		&RefreshTokenRecord{},
		&MigrationRecord{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	var executed []MigrationRecord
	if err := db.Find(&executed).Error; err != nil {
		return fmt.Errorf("load executed migrations: %w", err)
	}
	done := make(map[string]bool, len(executed))
	for _, m := range executed {
		done[m.ID] = true
	}

	ids := make([]string, 0, len(migrations))
	for id := range migrations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if done[id] {
			continue
		}
		slog.Info("running migration", "id", id)
		if err := migrations[id].Up(db); err != nil {
			return fmt.Errorf("migration %s: %w", id, err)
		}
		if err := db.Create(&MigrationRecord{ID: id}).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", id, err)
		}
	}

	return nil
}
