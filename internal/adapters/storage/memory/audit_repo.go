package memory

import (
	"context"

	"anticoag-tracker/internal/domain/audit"
)

type auditRepo struct {
	s *Store
}

func NewAuditRepo(s *Store) audit.Repository {
	return &auditRepo{s: s}
}

func (r *auditRepo) List(ctx context.Context, userID string, limit, offset int) ([]audit.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	// Newest first; the trail itself is append-only.
	mine := make([]audit.Record, 0)
	for i := len(r.s.auditTrail) - 1; i >= 0; i-- {
		if r.s.auditTrail[i].UserID == userID {
			mine = append(mine, r.s.auditTrail[i])
		}
	}

	if offset >= len(mine) {
		return []audit.Record{}, nil
	}
	mine = mine[offset:]
	if limit < len(mine) {
		mine = mine[:limit]
	}
	return mine, nil
}

func (r *auditRepo) Count(ctx context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, rec := range r.s.auditTrail {
		if rec.UserID == userID {
			n++
		}
	}
	return n, nil
}
