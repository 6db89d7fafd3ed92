package memory

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"anticoag-tracker/internal/auth"
	"anticoag-tracker/internal/domain/audit"
	"anticoag-tracker/internal/domain/inr"
	"anticoag-tracker/internal/domain/medications"
	"anticoag-tracker/internal/domain/users"
)

// Store holds every table under one lock so mutations and their audit
// records stay consistent, same as the database adapter's hooks. Meant for
// dev and tests only.
type Store struct {
	mu sync.RWMutex

	users       map[string]users.User
	medications map[string]medications.Medication
	patterns    map[string]medications.DosagePattern
	logs        map[string]medications.IntakeLog
	tests       map[string]inr.Test
	schedules   map[string]inr.Schedule // keyed by user id, one per user
	items       map[string]inr.ScheduleItem
	tokens      map[string]auth.RefreshToken // keyed by digest

	auditTrail []audit.Record
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]users.User),
		medications: make(map[string]medications.Medication),
		patterns:    make(map[string]medications.DosagePattern),
		logs:        make(map[string]medications.IntakeLog),
		tests:       make(map[string]inr.Test),
		schedules:   make(map[string]inr.Schedule),
		items:       make(map[string]inr.ScheduleItem),
		tokens:      make(map[string]auth.RefreshToken),
	}
}

// recordAudit appends a trail entry; callers hold the write lock. Snapshots
// are skipped for deletes, matching the database hooks.
func (s *Store) recordAudit(action audit.Action, entityType, entityID, userID string, v any) {
	rec := audit.Record{
		ID:         uuid.NewString(),
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		At:         time.Now().UTC(),
	}
	if action != audit.ActionDelete {
		if snap, err := json.Marshal(v); err == nil {
			rec.Snapshot = string(snap)
		}
	}
	s.auditTrail = append(s.auditTrail, rec)
}
