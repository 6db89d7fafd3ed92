package sdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anticoag-tracker/internal/router"
	"anticoag-tracker/internal/statecache"
	"anticoag-tracker/pkg/sdk"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_MedicationFlow(t *testing.T) {
	ts := newTestServer(t)
	client := sdk.New(ts.URL, sdk.WithDebugUser("user-a"))
	ctx := context.Background()

	med, err := client.CreateMedication(ctx, sdk.MedicationCreate{
		Name:     "Warfarin",
		Strength: "5 mg tablets",
	})
	if err != nil {
		t.Fatalf("CreateMedication: %v", err)
	}
	if med.ID == "" || med.Unit != "mg" {
		t.Fatalf("unexpected medication: %+v", med)
	}

	start := time.Now().UTC().AddDate(0, 0, -7)
	if _, err := client.CreatePattern(ctx, med.ID, sdk.DosagePatternCreate{
		CycleDoses: []float64{5, 2.5},
		StartDate:  start.Format("2006-01-02"),
	}); err != nil {
		t.Fatalf("CreatePattern: %v", err)
	}

	log, err := client.CreateLog(ctx, med.ID, sdk.IntakeLogCreate{
		TakenAt:    start.AddDate(0, 0, 2),
		ActualDose: 5,
	})
	if err != nil {
		t.Fatalf("CreateLog: %v", err)
	}
	if log.ExpectedDose == nil || *log.ExpectedDose != 5 {
		t.Fatalf("expected dose 5 on an even cycle day, got %v", log.ExpectedDose)
	}
	if log.Variance == nil || *log.Variance != 0 {
		t.Fatalf("expected zero variance, got %v", log.Variance)
	}

	meds, err := client.ListMedications(ctx)
	if err != nil {
		t.Fatalf("ListMedications: %v", err)
	}
	if len(meds) != 1 || meds[0].ID != med.ID {
		t.Fatalf("unexpected medication list: %+v", meds)
	}

	report, err := client.AdherenceReport(ctx, start, time.Now().UTC())
	if err != nil {
		t.Fatalf("AdherenceReport: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].OnPattern != 1 {
		t.Fatalf("unexpected adherence report: %+v", report.Results)
	}
}

func TestClient_APIErrorSurface(t *testing.T) {
	ts := newTestServer(t)
	client := sdk.New(ts.URL, sdk.WithDebugUser("user-a"))
	ctx := context.Background()

	_, err := client.GetMedication(ctx, "missing-id")
	var apiErr *sdk.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", apiErr.Status)
	}

	_, err = client.CreateINRTest(ctx, sdk.INRTestCreate{
		Value:    42,
		TestedAt: time.Now().UTC(),
	})
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for out-of-range INR, got %v", err)
	}
}

func TestClient_RetriesTransportErrors(t *testing.T) {
	// Fail the first attempt at the TCP level, then serve normally.
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("response writer does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := sdk.New(srv.URL, sdk.WithDebugUser("user-a"))
	if _, err := client.ListMedications(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestClient_OfflineCache(t *testing.T) {
	ts := newTestServer(t)

	cache, err := statecache.New(t.TempDir(), []byte("thisis32byteslongsecretkey123456"))
	if err != nil {
		t.Fatalf("statecache.New: %v", err)
	}

	client := sdk.New(ts.URL,
		sdk.WithDebugUser("user-a"),
		sdk.WithOfflineCache(cache, "user-a"),
	)
	ctx := context.Background()

	if _, err := client.CreateMedication(ctx, sdk.MedicationCreate{Name: "Warfarin"}); err != nil {
		t.Fatalf("CreateMedication: %v", err)
	}
	if _, err := client.ListMedications(ctx); err != nil {
		t.Fatalf("ListMedications: %v", err)
	}

	// The last fetch survives without the server.
	ts.Close()
	meds, err := client.OfflineMedications()
	if err != nil {
		t.Fatalf("OfflineMedications: %v", err)
	}
	if len(meds) != 1 || meds[0].Name != "Warfarin" {
		t.Fatalf("unexpected offline medications: %+v", meds)
	}
}

func TestClient_RefreshOnUnauthorized(t *testing.T) {
	// A stub server that rejects the stale token once, accepts the rotated
	// pair afterwards.
	const (
		staleAccess  = "stale-access"
		freshAccess  = "fresh-access"
		staleRefresh = "stale-refresh"
		freshRefresh = "fresh-refresh"
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"` + freshAccess + `","refresh_token":"` + freshRefresh + `","token_type":"Bearer","expires_in":900}`))
		case "/me":
			if r.Header.Get("Authorization") != "Bearer "+freshAccess {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"user-a"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := sdk.New(srv.URL, sdk.WithSession(staleAccess, staleRefresh))

	profile, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if profile.ID != "user-a" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	access, refresh := client.Session()
	if access != freshAccess || refresh != freshRefresh {
		t.Fatalf("expected rotated session, got %s / %s", access, refresh)
	}
}
