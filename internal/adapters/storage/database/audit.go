package database

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"anticoag-tracker/internal/domain/audit"
)

// auditable marks records whose mutations land in the audit trail.
type auditable interface {
	auditInfo() (entityType, entityID, userID string)
}

func (r *UserRecord) auditInfo() (string, string, string) {
	return "user", r.PublicID, r.UserID
}

func (r *MedicationRecord) auditInfo() (string, string, string) {
	return "medication", r.PublicID, r.UserID
}

func (r *DosagePatternRecord) auditInfo() (string, string, string) {
	return "dosage_pattern", r.PublicID, r.UserID
}

func (r *IntakeLogRecord) auditInfo() (string, string, string) {
	return "medication_log", r.PublicID, r.UserID
}

func (r *INRTestRecord) auditInfo() (string, string, string) {
	return "inr_test", r.PublicID, r.UserID
}

func (r *INRScheduleRecord) auditInfo() (string, string, string) {
	return "inr_schedule", r.PublicID, r.UserID
}

// RegisterAuditCallbacks hooks audit capture into the write path, so every
// create, update and soft delete of an audited record writes an AuditEntry
// inside the same statement's transaction. Schedule items are deliberately
// not audited: regeneration would flood the trail with machine-made rows.
func RegisterAuditCallbacks(db *gorm.DB) error {
	if err := db.Callback().Create().After("gorm:create").
		Register("anticoag:audit_create", auditHook(audit.ActionCreate)); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").
		Register("anticoag:audit_update", auditHook(audit.ActionUpdate)); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").
		Register("anticoag:audit_delete", auditHook(audit.ActionDelete))
}

func auditHook(action audit.Action) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement == nil {
			return
		}
		rec, ok := tx.Statement.Dest.(auditable)
		if !ok {
			return
		}
		if tx.RowsAffected == 0 {
			return
		}

		entityType, entityID, userID := rec.auditInfo()
		if entityID == "" || userID == "" {
			return
		}

		entry := AuditEntry{
			PublicID:   uuid.NewString(),
			UserID:     userID,
			EntityType: entityType,
			EntityID:   entityID,
			Action:     string(action),
		}
		if action != audit.ActionDelete {
			if snap, err := json.Marshal(tx.Statement.Dest); err == nil {
				entry.Snapshot = string(snap)
			}
		}

		if err := tx.Session(&gorm.Session{NewDB: true, SkipHooks: true}).
			Create(&entry).Error; err != nil {
			tx.AddError(err)
		}
	}
}
