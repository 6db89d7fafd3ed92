package audit

import "context"

// Repository reads the audit trail. Records are written by the storage layer
// itself (mutation hooks), never by handlers.
type Repository interface {
	List(ctx context.Context, userID string, limit, offset int) ([]Record, error)
	Count(ctx context.Context, userID string) (int, error)
}
