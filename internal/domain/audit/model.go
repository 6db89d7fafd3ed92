package audit

import "time"

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Record is one captured mutation. Snapshot holds the row as JSON after a
// create or update; deletes keep only the identifiers.
type Record struct {
	ID     string
	UserID string

	EntityType string
	EntityID   string
	Action     Action
	Snapshot   string

	At time.Time
}
