package medications

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
	r.Route("/medications", func(mr chi.Router) {
		mr.Post("/", createMedicationHandler(svc))
		mr.Get("/", listMedicationsHandler(svc))

		mr.Get("/{medicationID}", getMedicationHandler(svc))
		mr.Patch("/{medicationID}", updateMedicationHandler(svc))
		mr.Delete("/{medicationID}", deleteMedicationHandler(svc))

		mr.Post("/{medicationID}/patterns", createPatternHandler(svc))
		mr.Get("/{medicationID}/patterns", listPatternsHandler(svc))

		mr.Post("/{medicationID}/logs", createLogHandler(svc))
		mr.Get("/{medicationID}/logs", listLogsHandler(svc))
	})

	r.Delete("/patterns/{patternID}", deletePatternHandler(svc))
	r.Delete("/logs/{logID}", deleteLogHandler(svc))

	r.Get("/reports/adherence", adherenceReportHandler(svc))
}

type createMedicationRequest struct {
	Name     string `json:"name"`
	Strength string `json:"strength"`
	Unit     string `json:"unit"`
	Notes    string `json:"notes"`
}

type updateMedicationRequest struct {
	Name     *string `json:"name"`
	Strength *string `json:"strength"`
	Notes    *string `json:"notes"`
	Active   *bool   `json:"active"`
}

type medicationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Strength  string    `json:"strength"`
	Unit      string    `json:"unit"`
	Active    bool      `json:"active"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type createPatternRequest struct {
	CycleDoses []float64 `json:"cycle_doses"`
	StartDate  string    `json:"start_date"`         // YYYY-MM-DD
	EndDate    string    `json:"end_date,omitempty"` // YYYY-MM-DD, optional
}

type patternResponse struct {
	ID           string    `json:"id"`
	MedicationID string    `json:"medication_id"`
	CycleDoses   []float64 `json:"cycle_doses"`
	StartDate    string    `json:"start_date"`
	EndDate      *string   `json:"end_date,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type createLogRequest struct {
	TakenAt    string  `json:"taken_at"` // RFC3339
	ActualDose float64 `json:"actual_dose"`
	Notes      string  `json:"notes"`
}

type logResponse struct {
	ID           string    `json:"id"`
	MedicationID string    `json:"medication_id"`
	TakenAt      time.Time `json:"taken_at"`
	ActualDose   float64   `json:"actual_dose"`
	ExpectedDose *float64  `json:"expected_dose,omitempty"`
	Variance     *float64  `json:"variance,omitempty"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

type adherenceResponse struct {
	From    string                 `json:"from"`
	To      string                 `json:"to"`
	Results []adherenceMedResponse `json:"results"`
}

type adherenceMedResponse struct {
	MedicationID   string  `json:"medication_id"`
	MedicationName string  `json:"medication_name"`
	Logs           int     `json:"logs"`
	WithExpected   int     `json:"with_expected"`
	OnPattern      int     `json:"on_pattern"`
	MeanVariance   float64 `json:"mean_variance"`
	MaxAbsVariance float64 `json:"max_abs_variance"`
}

// createMedicationHandler registers a medication for the caller.
//
//	@Summary	Create medication
//	@Tags		medications
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	medicationResponse
//	@Router		/medications [post]
func createMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.CreateMedication(r.Context(), claims.UserID, CreateMedicationInput{
			Name:     req.Name,
			Strength: req.Strength,
			Unit:     req.Unit,
			Notes:    req.Notes,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

func listMedicationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListMedications(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m, err := svc.GetMedication(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func updateMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.UpdateMedication(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"), UpdateMedicationInput{
			Name:     req.Name,
			Strength: req.Strength,
			Notes:    req.Notes,
			Active:   req.Active,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func deleteMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.DeleteMedication(r.Context(), claims.UserID, chi.URLParam(r, "medicationID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// createPatternHandler adds a dosage pattern to a medication.
//
//	@Summary	Create dosage pattern
//	@Tags		medications
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	patternResponse
//	@Router		/medications/{medicationID}/patterns [post]
func createPatternHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createPatternRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		start, err := time.Parse("2006-01-02", strings.TrimSpace(req.StartDate))
		if err != nil {
			http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		var end *time.Time
		if strings.TrimSpace(req.EndDate) != "" {
			t, err := time.Parse("2006-01-02", strings.TrimSpace(req.EndDate))
			if err != nil {
				http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			end = &t
		}

		p, err := svc.CreatePattern(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"), CreatePatternInput{
			CycleDoses: req.CycleDoses,
			StartDate:  start,
			EndDate:    end,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPatternResponse(p))
	}
}

func listPatternsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListPatterns(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]patternResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPatternResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deletePatternHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.DeletePattern(r.Context(), claims.UserID, chi.URLParam(r, "patternID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// createLogHandler logs a taken dose; the response carries the computed
// expected dose and variance when a pattern covered the date.
//
//	@Summary	Log a dose
//	@Tags		medications
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	logResponse
//	@Router		/medications/{medicationID}/logs [post]
func createLogHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createLogRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		takenAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.TakenAt))
		if err != nil {
			http.Error(w, "taken_at must be RFC3339", http.StatusBadRequest)
			return
		}

		l, err := svc.CreateLog(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"), CreateLogInput{
			TakenAt:    takenAt,
			ActualDose: req.ActualDose,
			Notes:      req.Notes,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toLogResponse(l))
	}
}

func listLogsHandler(svc *Service) http.HandlerFunc {
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

		items, err := svc.ListLogs(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"), from, to)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]logResponse, 0, len(items))
		for _, l := range items {
			out = append(out, toLogResponse(l))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteLogHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.DeleteLog(r.Context(), claims.UserID, chi.URLParam(r, "logID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// adherenceReportHandler summarizes dose variance per medication.
//
//	@Summary	Adherence report
//	@Tags		reports
//	@Produce	json
//	@Success	200	{object}	adherenceResponse
//	@Router		/reports/adherence [get]
func adherenceReportHandler(svc *Service) http.HandlerFunc {
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

		results, err := svc.AdherenceReport(r.Context(), claims.UserID, from, to)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp := adherenceResponse{
			From:    from.Format("2006-01-02"),
			To:      to.Format("2006-01-02"),
			Results: make([]adherenceMedResponse, 0, len(results)),
		}
		for _, a := range results {
			resp.Results = append(resp.Results, adherenceMedResponse{
				MedicationID:   a.MedicationID,
				MedicationName: a.MedicationName,
				Logs:           a.Logs,
				WithExpected:   a.WithExpected,
				OnPattern:      a.OnPattern,
				MeanVariance:   a.MeanVariance,
				MaxAbsVariance: a.MaxAbsVar,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// parseRange reads optional from/to query params (YYYY-MM-DD). Defaults to
// the trailing 30 days.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
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
		// Inclusive end of day.
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to must not precede from")
	}
	return from, to, nil
}

func toMedicationResponse(m Medication) medicationResponse {
	return medicationResponse{
		ID:        m.ID,
		Name:      m.Name,
		Strength:  m.Strength,
		Unit:      m.Unit,
		Active:    m.Active,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toPatternResponse(p DosagePattern) patternResponse {
	resp := patternResponse{
		ID:           p.ID,
		MedicationID: p.MedicationID,
		CycleDoses:   p.CycleDoses,
		StartDate:    p.StartDate.Format("2006-01-02"),
		CreatedAt:    p.CreatedAt,
	}
	if p.EndDate != nil {
		s := p.EndDate.Format("2006-01-02")
		resp.EndDate = &s
	}
	return resp
}

func toLogResponse(l IntakeLog) logResponse {
	return logResponse{
		ID:           l.ID,
		MedicationID: l.MedicationID,
		TakenAt:      l.TakenAt,
		ActualDose:   l.ActualDose,
		ExpectedDose: l.ExpectedDose,
		Variance:     l.Variance,
		Notes:        l.Notes,
		CreatedAt:    l.CreatedAt,
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
