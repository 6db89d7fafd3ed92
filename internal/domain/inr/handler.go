package inr

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"anticoag-tracker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/inr", func(ir chi.Router) {
		ir.Post("/tests", createTestHandler(svc))
		ir.Get("/tests", listTestsHandler(svc))
		ir.Delete("/tests/{testID}", deleteTestHandler(svc))

		ir.Put("/schedule", saveScheduleHandler(svc))
		ir.Get("/schedule", getScheduleHandler(svc))
		ir.Get("/schedule/items", listItemsHandler(svc))
	})

	r.Get("/reports/inr", inrReportHandler(svc))
}

type createTestRequest struct {
	Value    float64 `json:"value"`
	TestedAt string  `json:"tested_at"` // RFC3339
	Notes    string  `json:"notes"`
}

type testResponse struct {
	ID        string    `json:"id"`
	Value     float64   `json:"value"`
	TestedAt  time.Time `json:"tested_at"`
	InRange   bool      `json:"in_range"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

type saveScheduleRequest struct {
	CadenceDays int    `json:"cadence_days"`
	StartDate   string `json:"start_date"` // YYYY-MM-DD
}

type scheduleResponse struct {
	ID          string    `json:"id"`
	CadenceDays int       `json:"cadence_days"`
	StartDate   string    `json:"start_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type scheduleItemResponse struct {
	ID              string `json:"id"`
	DueDate         string `json:"due_date"`
	Status          string `json:"status"`
	FulfilledByTest string `json:"fulfilled_by_test,omitempty"`
}

type inrReportResponse struct {
	From        string        `json:"from"`
	To          string        `json:"to"`
	Tests       int           `json:"tests"`
	InRange     int           `json:"in_range"`
	InRangeRate float64       `json:"in_range_rate"`
	Latest      *testResponse `json:"latest,omitempty"`
	Trend       string        `json:"trend"`
}

// createTestHandler logs an INR lab result.
//
//	@Summary	Log INR test
//	@Tags		inr
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	testResponse
//	@Router		/inr/tests [post]
func createTestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createTestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		testedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.TestedAt))
		if err != nil {
			http.Error(w, "tested_at must be RFC3339", http.StatusBadRequest)
			return
		}

		t, err := svc.CreateTest(r.Context(), claims.UserID, CreateTestInput{
			Value:    req.Value,
			TestedAt: testedAt,
			Notes:    req.Notes,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTestResponse(t))
	}
}

func listTestsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		from, to, err := parseRange(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := svc.ListTests(r.Context(), claims.UserID, from, to)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]testResponse, 0, len(items))
		for _, t := range items {
			out = append(out, toTestResponse(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteTestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.DeleteTest(r.Context(), claims.UserID, chi.URLParam(r, "testID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// saveScheduleHandler upserts the testing cadence and regenerates items.
//
//	@Summary	Save INR schedule
//	@Tags		inr
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	scheduleResponse
//	@Router		/inr/schedule [put]
func saveScheduleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req saveScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		start, err := time.Parse("2006-01-02", strings.TrimSpace(req.StartDate))
		if err != nil {
			http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		sched, err := svc.SaveSchedule(r.Context(), claims.UserID, SaveScheduleInput{
			CadenceDays: req.CadenceDays,
			StartDate:   start,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(sched))
	}
}

func getScheduleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sched, err := svc.GetSchedule(r.Context(), claims.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toScheduleResponse(sched))
	}
}

func listItemsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListItems(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]scheduleItemResponse, 0, len(items))
		for _, item := range items {
			out = append(out, scheduleItemResponse{
				ID:              item.ID,
				DueDate:         item.DueDate.Format("2006-01-02"),
				Status:          string(item.Status),
				FulfilledByTest: item.FulfilledByTest,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// inrReportHandler returns time-in-range and trend over a range.
//
//	@Summary	INR report
//	@Tags		reports
//	@Produce	json
//	@Success	200	{object}	inrReportResponse
//	@Router		/reports/inr [get]
func inrReportHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		from, to, err := parseRange(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		rep, err := svc.Report(r.Context(), claims.UserID, from, to)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp := inrReportResponse{
			From:        from.Format("2006-01-02"),
			To:          to.Format("2006-01-02"),
			Tests:       rep.Tests,
			InRange:     rep.InRange,
			InRangeRate: rep.InRangeRate,
			Trend:       rep.Trend,
		}
		if rep.Latest != nil {
			latest := toTestResponse(*rep.Latest)
			resp.Latest = &latest
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// parseRange reads optional from/to query params (YYYY-MM-DD), defaulting to
// the trailing 90 days.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -90)
	to := now

	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
		}
		from = t
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
		}
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to must not precede from")
	}
	return from, to, nil
}

func toTestResponse(t Test) testResponse {
	return testResponse{
		ID:        t.ID,
		Value:     t.Value,
		TestedAt:  t.TestedAt,
		InRange:   t.InRange,
		Notes:     t.Notes,
		CreatedAt: t.CreatedAt,
	}
}

func toScheduleResponse(s Schedule) scheduleResponse {
	return scheduleResponse{
		ID:          s.ID,
		CadenceDays: s.CadenceDays,
		StartDate:   s.StartDate.Format("2006-01-02"),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusUnprocessableEntity)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
