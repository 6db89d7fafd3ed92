package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"anticoag-tracker/internal/auth"
	"anticoag-tracker/internal/domain/inr"
	"anticoag-tracker/internal/domain/medications"
	"anticoag-tracker/internal/domain/users"
	"anticoag-tracker/internal/middleware"
	authport "anticoag-tracker/internal/ports/auth"
	"anticoag-tracker/internal/statecache"
)

const draftTTL = 30 * time.Minute

// Handler serves the server-rendered pages. It talks to the same services as
// the API; the session cookie stands in for the Authorization header.
type Handler struct {
	users       *users.Service
	medications *medications.Service
	inr         *inr.Service

	verifier  authport.AuthVerifier
	providers []string
	drafts    *statecache.Cache
}

func NewHandler(us *users.Service, ms *medications.Service, is *inr.Service, verifier authport.AuthVerifier, providerIDs []string, drafts *statecache.Cache) *Handler {
	return &Handler{
		users:       us,
		medications: ms,
		inr:         is,
		verifier:    verifier,
		providers:   providerIDs,
		drafts:      drafts,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/login", h.loginPage)

	r.Group(func(pr chi.Router) {
		pr.Use(h.sessionAuth)
		pr.Get("/", h.dashboard)
		pr.Post("/medications", h.createMedication)
		pr.Get("/medications/{medicationID}", h.medicationPage)
		pr.Post("/medications/{medicationID}/logs", h.logDose)
		pr.Get("/inr", h.inrPage)
		pr.Post("/inr/tests", h.logTest)
		pr.Post("/inr/schedule", h.saveSchedule)
	})
}

// sessionAuth verifies the session cookie when the bearer middleware left no
// identity. Requests still anonymous after that are sent to the login page.
func (h *Handler) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		if h.verifier != nil {
			if cookie, err := r.Cookie(auth.SessionCookie); err == nil && cookie.Value != "" {
				if claims, err := h.verifier.Verify(r.Context(), cookie.Value); err == nil {
					next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), claims)))
					return
				}
			}
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})
}

type loginView struct {
	Providers []loginProvider
}

type loginProvider struct {
	ID       string
	StartURL string
}

func (h *Handler) loginPage(w http.ResponseWriter, r *http.Request) {
	view := loginView{}
	for _, id := range h.providers {
		view.Providers = append(view.Providers, loginProvider{
			ID:       id,
			StartURL: "/auth/providers/" + id + "/start?redirect_uri=" + url.QueryEscape("/"),
		})
	}
	h.render(w, "login.html", view)
}

type dashboardView struct {
	User        users.User
	Medications []medications.Medication
	RecentLogs  []medications.IntakeLog
	Report      inr.Report
	Upcoming    []inr.ScheduleItem
	Error       string
	Draft       medicationDraft
}

type medicationDraft struct {
	Name     string `json:"name"`
	Strength string `json:"strength"`
	Unit     string `json:"unit"`
	Notes    string `json:"notes"`
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	user, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		h.renderError(w, http.StatusInternalServerError)
		return
	}
	if errors.Is(err, users.ErrNotFound) {
		// Dev identities have no profile row; show the defaults.
		user = users.User{ID: claims.UserID, INRLow: users.DefaultINRLow, INRHigh: users.DefaultINRHigh}
	}

	meds, err := h.medications.ListMedications(r.Context(), claims.UserID)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	logs, err := h.medications.ListRecentLogs(r.Context(), claims.UserID, now.AddDate(0, 0, -14), now)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError)
		return
	}
	if len(logs) > 10 {
		logs = logs[:10]
	}

	report, err := h.inr.Report(r.Context(), claims.UserID, now.AddDate(0, 0, -90), now)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	items, err := h.inr.ListItems(r.Context(), claims.UserID)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError)
		return
	}
	upcoming := make([]inr.ScheduleItem, 0, 5)
	for _, item := range items {
		if item.Status == inr.ItemStatusFulfilled {
			continue
		}
		upcoming = append(upcoming, item)
		if len(upcoming) == 5 {
			break
		}
	}

	view := dashboardView{
		User:        user,
		Medications: meds,
		RecentLogs:  logs,
		Report:      report,
		Upcoming:    upcoming,
		Error:       r.URL.Query().Get("error"),
	}
	h.loadDraft(claims.UserID, "medication-form", &view.Draft)
	h.render(w, "dashboard.html", view)
}

func (h *Handler) createMedication(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest)
		return
	}

	draft := medicationDraft{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Strength: strings.TrimSpace(r.PostFormValue("strength")),
		Unit:     strings.TrimSpace(r.PostFormValue("unit")),
		Notes:    strings.TrimSpace(r.PostFormValue("notes")),
	}

	_, err := h.medications.CreateMedication(r.Context(), claims.UserID, medications.CreateMedicationInput{
		Name:     draft.Name,
		Strength: draft.Strength,
		Unit:     draft.Unit,
		Notes:    draft.Notes,
	})
	if err != nil {
		h.saveDraft(claims.UserID, "medication-form", draft)
		http.Redirect(w, r, "/?error="+url.QueryEscape("medication name is required"), http.StatusSeeOther)
		return
	}

	h.dropDraft(claims.UserID, "medication-form")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type medicationView struct {
	Medication medications.Medication
	Patterns   []medications.DosagePattern
	Logs       []medications.IntakeLog
	Error      string
	Draft      doseDraft
}

type doseDraft struct {
	TakenAt    string `json:"taken_at"`
	ActualDose string `json:"actual_dose"`
	Notes      string `json:"notes"`
}

func (h *Handler) medicationPage(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	medicationID := chi.URLParam(r, "medicationID")

	med, err := h.medications.GetMedication(r.Context(), claims.UserID, medicationID)
	if err != nil {
		if errors.Is(err, medications.ErrNotFound) {
			h.renderError(w, http.StatusNotFound)
			return
		}
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	patterns, err := h.medications.ListPatterns(r.Context(), claims.UserID, medicationID)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	logs, err := h.medications.ListLogs(r.Context(), claims.UserID, medicationID, now.AddDate(0, 0, -30), now)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	view := medicationView{
		Medication: med,
		Patterns:   patterns,
		Logs:       logs,
		Error:      r.URL.Query().Get("error"),
	}
	h.loadDraft(claims.UserID, "dose-form:"+medicationID, &view.Draft)
	h.render(w, "medication.html", view)
}

func (h *Handler) logDose(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	medicationID := chi.URLParam(r, "medicationID")
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest)
		return
	}

	draft := doseDraft{
		TakenAt:    strings.TrimSpace(r.PostFormValue("taken_at")),
		ActualDose: strings.TrimSpace(r.PostFormValue("actual_dose")),
		Notes:      strings.TrimSpace(r.PostFormValue("notes")),
	}
	back := "/medications/" + medicationID

	takenAt, dose, err := parseDoseForm(draft)
	if err == nil {
		_, err = h.medications.CreateLog(r.Context(), claims.UserID, medicationID, medications.CreateLogInput{
			TakenAt:    takenAt,
			ActualDose: dose,
			Notes:      draft.Notes,
		})
	}
	if err != nil {
		h.saveDraft(claims.UserID, "dose-form:"+medicationID, draft)
		http.Redirect(w, r, back+"?error="+url.QueryEscape("enter a date and a non-negative dose"), http.StatusSeeOther)
		return
	}

	h.dropDraft(claims.UserID, "dose-form:"+medicationID)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func parseDoseForm(d doseDraft) (time.Time, float64, error) {
	takenAt, err := time.Parse("2006-01-02", d.TakenAt)
	if err != nil {
		return time.Time{}, 0, err
	}
	dose, err := strconv.ParseFloat(d.ActualDose, 64)
	if err != nil {
		return time.Time{}, 0, err
	}
	return takenAt.UTC(), dose, nil
}

type inrView struct {
	Tests    []inr.Test
	Report   inr.Report
	Schedule *inr.Schedule
	Items    []inr.ScheduleItem
	Error    string
	Draft    testDraft
}

type testDraft struct {
	Value    string `json:"value"`
	TestedAt string `json:"tested_at"`
	Notes    string `json:"notes"`
}

func (h *Handler) inrPage(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	now := time.Now().UTC()
	tests, err := h.inr.ListTests(r.Context(), claims.UserID, now.AddDate(0, 0, -180), now)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	report, err := h.inr.Report(r.Context(), claims.UserID, now.AddDate(0, 0, -90), now)
	if err != nil {
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	view := inrView{
		Tests:  tests,
		Report: report,
		Error:  r.URL.Query().Get("error"),
	}

	sched, err := h.inr.GetSchedule(r.Context(), claims.UserID)
	switch {
	case err == nil:
		view.Schedule = &sched
		items, err := h.inr.ListItems(r.Context(), claims.UserID)
		if err != nil {
			h.renderError(w, http.StatusInternalServerError)
			return
		}
		view.Items = items
	case errors.Is(err, inr.ErrNotFound):
		// No schedule yet; the page offers the setup form.
	default:
		h.renderError(w, http.StatusInternalServerError)
		return
	}

	h.loadDraft(claims.UserID, "inr-test-form", &view.Draft)
	h.render(w, "inr.html", view)
}

func (h *Handler) logTest(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest)
		return
	}

	draft := testDraft{
		Value:    strings.TrimSpace(r.PostFormValue("value")),
		TestedAt: strings.TrimSpace(r.PostFormValue("tested_at")),
		Notes:    strings.TrimSpace(r.PostFormValue("notes")),
	}

	value, verr := strconv.ParseFloat(draft.Value, 64)
	testedAt, terr := time.Parse("2006-01-02", draft.TestedAt)
	var err error
	if verr != nil || terr != nil {
		err = inr.ErrInvalidInput
	} else {
		_, err = h.inr.CreateTest(r.Context(), claims.UserID, inr.CreateTestInput{
			Value:    value,
			TestedAt: testedAt.UTC(),
			Notes:    draft.Notes,
		})
	}
	if err != nil {
		h.saveDraft(claims.UserID, "inr-test-form", draft)
		http.Redirect(w, r, "/inr?error="+url.QueryEscape("INR value must be between 0.5 and 10"), http.StatusSeeOther)
		return
	}

	h.dropDraft(claims.UserID, "inr-test-form")
	http.Redirect(w, r, "/inr", http.StatusSeeOther)
}

func (h *Handler) saveSchedule(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest)
		return
	}

	cadence, cerr := strconv.Atoi(strings.TrimSpace(r.PostFormValue("cadence_days")))
	start, serr := time.Parse("2006-01-02", strings.TrimSpace(r.PostFormValue("start_date")))
	var err error
	if cerr != nil || serr != nil {
		err = inr.ErrInvalidInput
	} else {
		_, err = h.inr.SaveSchedule(r.Context(), claims.UserID, inr.SaveScheduleInput{
			CadenceDays: cadence,
			StartDate:   start.UTC(),
		})
	}
	if err != nil {
		http.Redirect(w, r, "/inr?error="+url.QueryEscape("cadence must be at least 1 day"), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/inr", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, name string, view any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, view); err != nil {
		slog.Error("render page", "template", name, "error", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = templates.ExecuteTemplate(w, "error.html", map[string]int{"Status": status})
}

// Draft helpers; a broken cache never blocks a page.
func (h *Handler) loadDraft(userID, key string, out any) {
	if h.drafts == nil {
		return
	}
	_ = h.drafts.Get(userID, key, out)
}

func (h *Handler) saveDraft(userID, key string, v any) {
	if h.drafts == nil {
		return
	}
	_ = h.drafts.Put(userID, key, v, draftTTL)
}

func (h *Handler) dropDraft(userID, key string) {
	if h.drafts == nil {
		return
	}
	_ = h.drafts.Delete(userID, key)
}
