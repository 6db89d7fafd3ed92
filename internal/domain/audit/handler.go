package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"anticoag-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/audit", listAuditHandler(svc))
}

type recordResponse struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Action     string          `json:"action"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
	At         time.Time       `json:"at"`
}

type auditPageResponse struct {
	Records []recordResponse `json:"records"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// listAuditHandler returns the caller's audit trail, newest first.
//
//	@Summary	List audit records
//	@Tags		audit
//	@Produce	json
//	@Success	200	{object}	auditPageResponse
//	@Router		/audit [get]
func listAuditHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		page, err := svc.List(r.Context(), claims.UserID, limit, offset)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp := auditPageResponse{
			Records: make([]recordResponse, 0, len(page.Records)),
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
		}
		for _, rec := range page.Records {
			item := recordResponse{
				ID:         rec.ID,
				EntityType: rec.EntityType,
				EntityID:   rec.EntityID,
				Action:     string(rec.Action),
				At:         rec.At,
			}
			if rec.Snapshot != "" {
				item.Snapshot = json.RawMessage(rec.Snapshot)
			}
			resp.Records = append(resp.Records, item)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
