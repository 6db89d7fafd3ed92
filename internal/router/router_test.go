package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anticoag-tracker/internal/router"
)

func TestHTTP_EndToEnd_DoseVariance(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	userID := "user-a"

	medID := createMedication(t, ts.URL, userID, map[string]any{
		"name":     "Warfarin",
		"strength": "5 mg tablets",
		"unit":     "mg",
	})

	// Alternating 5 / 2.5 mg cycle starting ten days ago.
	start := time.Now().UTC().AddDate(0, 0, -10)
	{
		st, body := doReq(t, ts.URL, "POST", "/medications/"+medID+"/patterns", userID, map[string]any{
			"cycle_doses": []float64{5, 2.5},
			"start_date":  start.Format("2006-01-02"),
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 create pattern, got %d body=%s", st, string(body))
		}
	}

	// Day 3 of the cycle lands on the 2.5 mg slot; taking 5 mg is +2.5 over.
	takenAt := start.AddDate(0, 0, 3)
	st, body := doReq(t, ts.URL, "POST", "/medications/"+medID+"/logs", userID, map[string]any{
		"taken_at":    takenAt.Format(time.RFC3339),
		"actual_dose": 5.0,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create log, got %d body=%s", st, string(body))
	}

	var logResp struct {
		ID           string   `json:"id"`
		ExpectedDose *float64 `json:"expected_dose"`
		Variance     *float64 `json:"variance"`
	}
	if err := json.Unmarshal(body, &logResp); err != nil {
		t.Fatalf("unmarshal log response: %v", err)
	}
	if logResp.ExpectedDose == nil || *logResp.ExpectedDose != 2.5 {
		t.Fatalf("expected dose 2.5, got %v", logResp.ExpectedDose)
	}
	if logResp.Variance == nil || *logResp.Variance != 2.5 {
		t.Fatalf("expected variance 2.5, got %v", logResp.Variance)
	}

	// A log before the pattern window carries no expected dose.
	st, body = doReq(t, ts.URL, "POST", "/medications/"+medID+"/logs", userID, map[string]any{
		"taken_at":    start.AddDate(0, 0, -5).Format(time.RFC3339),
		"actual_dose": 5.0,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create log off-pattern, got %d body=%s", st, string(body))
	}
	var offPattern struct {
		ExpectedDose *float64 `json:"expected_dose"`
		Variance     *float64 `json:"variance"`
	}
	_ = json.Unmarshal(body, &offPattern)
	if offPattern.ExpectedDose != nil || offPattern.Variance != nil {
		t.Fatalf("expected nil expected/variance outside pattern window, got %v / %v",
			offPattern.ExpectedDose, offPattern.Variance)
	}

	// Adherence report aggregates the covered log.
	st, body = doReq(t, ts.URL, "GET", "/reports/adherence", userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 adherence report, got %d body=%s", st, string(body))
	}
	var report struct {
		Results []struct {
			MedicationID string  `json:"medication_id"`
			Logs         int     `json:"logs"`
			WithExpected int     `json:"with_expected"`
			MeanVariance float64 `json:"mean_variance"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("unmarshal adherence report: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].MedicationID != medID {
		t.Fatalf("expected one result for %s, got %+v", medID, report.Results)
	}
	if report.Results[0].Logs != 2 || report.Results[0].WithExpected != 1 {
		t.Fatalf("expected 2 logs with 1 covered, got %+v", report.Results[0])
	}
	if report.Results[0].MeanVariance != 2.5 {
		t.Fatalf("expected mean variance 2.5, got %v", report.Results[0].MeanVariance)
	}
}

func TestHTTP_RowIsolation(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	medID := createMedication(t, ts.URL, "user-a", map[string]any{"name": "Warfarin"})

	// Another user's rows behave as missing, never forbidden.
	st, _ := doReq(t, ts.URL, "GET", "/medications/"+medID, "user-b", nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign medication, got %d", st)
	}
	st, _ = doReq(t, ts.URL, "PATCH", "/medications/"+medID, "user-b", map[string]any{"name": "Stolen"})
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 patching foreign medication, got %d", st)
	}
	st, _ = doReq(t, ts.URL, "DELETE", "/medications/"+medID, "user-b", nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 deleting foreign medication, got %d", st)
	}

	st, body := doReq(t, ts.URL, "GET", "/medications", "user-b", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list, got %d", st)
	}
	var list []json.RawMessage
	_ = json.Unmarshal(body, &list)
	if len(list) != 0 {
		t.Fatalf("expected empty list for user-b, got %d items", len(list))
	}
}

func TestHTTP_SoftDelete(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	userID := "user-a"
	medID := createMedication(t, ts.URL, userID, map[string]any{"name": "Warfarin"})

	st, _ := doReq(t, ts.URL, "DELETE", "/medications/"+medID, userID, nil)
	if st != http.StatusNoContent {
		t.Fatalf("expected 204 delete, got %d", st)
	}
	st, _ = doReq(t, ts.URL, "GET", "/medications/"+medID, userID, nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", st)
	}
	st, _ = doReq(t, ts.URL, "DELETE", "/medications/"+medID, userID, nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", st)
	}
}

func TestHTTP_INRScheduleAndTests(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	userID := "user-a"
	today := time.Now().UTC()

	st, body := doReq(t, ts.URL, "PUT", "/inr/schedule", userID, map[string]any{
		"cadence_days": 7,
		"start_date":   today.Format("2006-01-02"),
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 save schedule, got %d body=%s", st, string(body))
	}

	// The first item is due today, inside the activation window.
	st, body = doReq(t, ts.URL, "GET", "/inr/schedule/items", userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list items, got %d body=%s", st, string(body))
	}
	var items []struct {
		ID              string `json:"id"`
		DueDate         string `json:"due_date"`
		Status          string `json:"status"`
		FulfilledByTest string `json:"fulfilled_by_test"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatalf("unmarshal items: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected generated schedule items")
	}
	if items[0].Status != "pending" {
		t.Fatalf("expected first item pending, got %s", items[0].Status)
	}

	// Logging a test fulfills the nearest pending item and flags the range.
	st, body = doReq(t, ts.URL, "POST", "/inr/tests", userID, map[string]any{
		"value":     2.5,
		"tested_at": today.Format(time.RFC3339),
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create test, got %d body=%s", st, string(body))
	}
	var test struct {
		ID      string `json:"id"`
		InRange bool   `json:"in_range"`
	}
	if err := json.Unmarshal(body, &test); err != nil {
		t.Fatalf("unmarshal test: %v", err)
	}
	if !test.InRange {
		t.Fatal("2.5 should be inside the default 2.0-3.0 target range")
	}

	st, body = doReq(t, ts.URL, "GET", "/inr/schedule/items", userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list items, got %d", st)
	}
	if err := json.Unmarshal(body, &items); err != nil {
		t.Fatalf("unmarshal items: %v", err)
	}
	if items[0].Status != "fulfilled" || items[0].FulfilledByTest != test.ID {
		t.Fatalf("expected first item fulfilled by %s, got %+v", test.ID, items[0])
	}

	// An out-of-bounds value is a domain violation.
	st, _ = doReq(t, ts.URL, "POST", "/inr/tests", userID, map[string]any{
		"value":     12.0,
		"tested_at": today.Format(time.RFC3339),
	})
	if st != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for INR value 12, got %d", st)
	}

	st, body = doReq(t, ts.URL, "GET", "/reports/inr", userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 inr report, got %d", st)
	}
	var report struct {
		Tests       int     `json:"tests"`
		InRange     int     `json:"in_range"`
		InRangeRate float64 `json:"in_range_rate"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("unmarshal inr report: %v", err)
	}
	if report.Tests != 1 || report.InRange != 1 || report.InRangeRate != 1 {
		t.Fatalf("expected 1/1 in range, got %+v", report)
	}
}

func TestHTTP_AuditTrail(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	userID := "user-a"
	medID := createMedication(t, ts.URL, userID, map[string]any{"name": "Warfarin"})

	st, _ := doReq(t, ts.URL, "PATCH", "/medications/"+medID, userID, map[string]any{"name": "Warfarin 2"})
	if st != http.StatusOK {
		t.Fatalf("expected 200 patch, got %d", st)
	}
	st, _ = doReq(t, ts.URL, "DELETE", "/medications/"+medID, userID, nil)
	if st != http.StatusNoContent {
		t.Fatalf("expected 204 delete, got %d", st)
	}

	st, body := doReq(t, ts.URL, "GET", "/audit", userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 audit, got %d body=%s", st, string(body))
	}
	var page struct {
		Records []struct {
			EntityType string          `json:"entity_type"`
			EntityID   string          `json:"entity_id"`
			Action     string          `json:"action"`
			Snapshot   json.RawMessage `json:"snapshot"`
		} `json:"records"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("unmarshal audit page: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("expected 3 audit records, got %d", page.Total)
	}

	// Newest first: delete, update, create.
	actions := []string{page.Records[0].Action, page.Records[1].Action, page.Records[2].Action}
	want := []string{"delete", "update", "create"}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("expected actions %v, got %v", want, actions)
		}
		if page.Records[i].EntityType != "medication" || page.Records[i].EntityID != medID {
			t.Fatalf("unexpected audit record: %+v", page.Records[i])
		}
	}
	if len(page.Records[0].Snapshot) != 0 {
		t.Fatal("delete records should carry no snapshot")
	}
	if len(page.Records[1].Snapshot) == 0 {
		t.Fatal("update records should carry a snapshot")
	}

	// The trail is invisible to other users.
	st, body = doReq(t, ts.URL, "GET", "/audit", "user-b", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 audit for user-b, got %d", st)
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("unmarshal audit page: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("expected empty trail for user-b, got %d", page.Total)
	}
}

func TestHTTP_RequiresIdentity(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{AuthVerifier: nil}))
	defer ts.Close()

	st, _ := doReq(t, ts.URL, "GET", "/medications", "", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", st)
	}
}

func createMedication(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/medications", userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create medication, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("create medication: missing id body=%s", string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, raw
}
