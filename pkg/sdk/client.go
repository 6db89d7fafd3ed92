// Package sdk is the client library for the anticoag tracker API: typed
// calls for every surface, bounded retry on transport errors, and automatic
// refresh-token rotation on 401. Mobile clients build on this.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"anticoag-tracker/internal/statecache"
)

const (
	maxAttempts   = 3
	retryBaseWait = 200 * time.Millisecond
	offlineTTL    = 24 * time.Hour
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string

	debugUserID string
	offline     *statecache.Cache
	offlineNS   string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSession seeds tokens from a previous login.
func WithSession(accessToken, refreshToken string) Option {
	return func(c *Client) {
		c.accessToken = accessToken
		c.refreshToken = refreshToken
	}
}

// WithDebugUser sends the dev-mode identity header instead of a bearer
// token. Only honored by servers running without a verifier.
func WithDebugUser(userID string) Option {
	return func(c *Client) { c.debugUserID = userID }
}

// WithOfflineCache keeps the last successfully fetched medications and INR
// data in the given state cache, for offline reads.
func WithOfflineCache(cache *statecache.Cache, namespace string) Option {
	return func(c *Client) {
		c.offline = cache
		c.offlineNS = namespace
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the current token pair.
func (c *Client) Session() (accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

// do runs one API call: marshal, authorize, retry on transport errors, and
// a single refresh-and-retry on 401.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	refreshed := false
	for attempt := 0; attempt < maxAttempts; attempt++ {
		status, body, err := c.roundTrip(ctx, method, path, in)
		if err != nil {
			// Transport error; back off and retry.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * retryBaseWait):
			}
			continue
		}

		if status == http.StatusUnauthorized && !refreshed && c.canRefresh() {
			if err := c.refresh(ctx); err != nil {
				return err
			}
			refreshed = true
			attempt--
			continue
		}

		if status < 200 || status > 299 {
			return &APIError{Status: status, Body: string(body)}
		}
		if out == nil || len(body) == 0 {
			return nil
		}
		return json.Unmarshal(body, out)
	}
	return fmt.Errorf("request failed after %d attempts", maxAttempts)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any) (int, []byte, error) {
	var reader io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.Lock()
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	} else if c.debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", c.debugUserID)
	}
	c.mu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) canRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken != ""
}

// refresh rotates the refresh token and swaps in the new pair.
func (c *Client) refresh(ctx context.Context) error {
	c.mu.Lock()
	token := c.refreshToken
	c.mu.Unlock()

	status, body, err := c.roundTrip(ctx, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": token,
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Status: status, Body: string(body)}
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return err
	}

	c.mu.Lock()
	c.accessToken = session.AccessToken
	c.refreshToken = session.RefreshToken
	c.mu.Unlock()
	return nil
}

// Logout revokes the refresh token and clears the session.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	token := c.refreshToken
	c.accessToken = ""
	c.refreshToken = ""
	c.mu.Unlock()

	if token == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": token}, nil)
}

// Profile

func (c *Client) Me(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodGet, "/me", nil, &p)
	return p, err
}

func (c *Client) UpdateMe(ctx context.Context, update ProfileUpdate) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodPatch, "/me", update, &p)
	return p, err
}

// Medications

func (c *Client) CreateMedication(ctx context.Context, in MedicationCreate) (Medication, error) {
	var m Medication
	err := c.do(ctx, http.MethodPost, "/medications", in, &m)
	return m, err
}

func (c *Client) ListMedications(ctx context.Context) ([]Medication, error) {
	var out []Medication
	if err := c.do(ctx, http.MethodGet, "/medications", nil, &out); err != nil {
		return nil, err
	}
	c.stashOffline("medications", out)
	return out, nil
}

func (c *Client) GetMedication(ctx context.Context, id string) (Medication, error) {
	var m Medication
	err := c.do(ctx, http.MethodGet, "/medications/"+url.PathEscape(id), nil, &m)
	return m, err
}

func (c *Client) UpdateMedication(ctx context.Context, id string, in MedicationUpdate) (Medication, error) {
	var m Medication
	err := c.do(ctx, http.MethodPatch, "/medications/"+url.PathEscape(id), in, &m)
	return m, err
}

func (c *Client) DeleteMedication(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/medications/"+url.PathEscape(id), nil, nil)
}

// Dosage patterns

func (c *Client) CreatePattern(ctx context.Context, medicationID string, in DosagePatternCreate) (DosagePattern, error) {
	var p DosagePattern
	err := c.do(ctx, http.MethodPost, "/medications/"+url.PathEscape(medicationID)+"/patterns", in, &p)
	return p, err
}

func (c *Client) ListPatterns(ctx context.Context, medicationID string) ([]DosagePattern, error) {
	var out []DosagePattern
	err := c.do(ctx, http.MethodGet, "/medications/"+url.PathEscape(medicationID)+"/patterns", nil, &out)
	return out, err
}

func (c *Client) DeletePattern(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/patterns/"+url.PathEscape(id), nil, nil)
}

// Intake logs

func (c *Client) CreateLog(ctx context.Context, medicationID string, in IntakeLogCreate) (IntakeLog, error) {
	var l IntakeLog
	err := c.do(ctx, http.MethodPost, "/medications/"+url.PathEscape(medicationID)+"/logs", in, &l)
	return l, err
}

func (c *Client) ListLogs(ctx context.Context, medicationID string, from, to time.Time) ([]IntakeLog, error) {
	var out []IntakeLog
	err := c.do(ctx, http.MethodGet, "/medications/"+url.PathEscape(medicationID)+"/logs"+rangeQuery(from, to), nil, &out)
	return out, err
}

func (c *Client) DeleteLog(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/logs/"+url.PathEscape(id), nil, nil)
}

// INR

func (c *Client) CreateINRTest(ctx context.Context, in INRTestCreate) (INRTest, error) {
	var t INRTest
	err := c.do(ctx, http.MethodPost, "/inr/tests", in, &t)
	return t, err
}

func (c *Client) ListINRTests(ctx context.Context, from, to time.Time) ([]INRTest, error) {
	var out []INRTest
	if err := c.do(ctx, http.MethodGet, "/inr/tests"+rangeQuery(from, to), nil, &out); err != nil {
		return nil, err
	}
	c.stashOffline("inr_tests", out)
	return out, nil
}

func (c *Client) DeleteINRTest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/inr/tests/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SaveINRSchedule(ctx context.Context, in INRScheduleSave) (INRSchedule, error) {
	var s INRSchedule
	err := c.do(ctx, http.MethodPut, "/inr/schedule", in, &s)
	return s, err
}

func (c *Client) GetINRSchedule(ctx context.Context) (INRSchedule, error) {
	var s INRSchedule
	err := c.do(ctx, http.MethodGet, "/inr/schedule", nil, &s)
	return s, err
}

func (c *Client) ListScheduleItems(ctx context.Context) ([]ScheduleItem, error) {
	var out []ScheduleItem
	err := c.do(ctx, http.MethodGet, "/inr/schedule/items", nil, &out)
	return out, err
}

// Reports

func (c *Client) AdherenceReport(ctx context.Context, from, to time.Time) (AdherenceReport, error) {
	var r AdherenceReport
	err := c.do(ctx, http.MethodGet, "/reports/adherence"+rangeQuery(from, to), nil, &r)
	return r, err
}

func (c *Client) GetINRReport(ctx context.Context, from, to time.Time) (INRReport, error) {
	var r INRReport
	if err := c.do(ctx, http.MethodGet, "/reports/inr"+rangeQuery(from, to), nil, &r); err != nil {
		return INRReport{}, err
	}
	c.stashOffline("inr_report", r)
	return r, nil
}

// Audit

func (c *Client) AuditRecords(ctx context.Context, limit, offset int) (AuditPage, error) {
	var page AuditPage
	path := fmt.Sprintf("/audit?limit=%d&offset=%d", limit, offset)
	err := c.do(ctx, http.MethodGet, path, nil, &page)
	return page, err
}

// Offline reads

// OfflineMedications returns the last medications fetched while online.
func (c *Client) OfflineMedications() ([]Medication, error) {
	var out []Medication
	if err := c.readOffline("medications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OfflineINRTests returns the last INR tests fetched while online.
func (c *Client) OfflineINRTests() ([]INRTest, error) {
	var out []INRTest
	if err := c.readOffline("inr_tests", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OfflineINRReport returns the last INR report fetched while online.
func (c *Client) OfflineINRReport() (INRReport, error) {
	var r INRReport
	err := c.readOffline("inr_report", &r)
	return r, err
}

func (c *Client) stashOffline(key string, v any) {
	if c.offline == nil {
		return
	}
	_ = c.offline.Put(c.offlineNS, "offline:"+key, v, offlineTTL)
}

func (c *Client) readOffline(key string, out any) error {
	if c.offline == nil {
		return statecache.ErrNotFound
	}
	return c.offline.Get(c.offlineNS, "offline:"+key, out)
}

func rangeQuery(from, to time.Time) string {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("from", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		q.Set("to", to.Format("2006-01-02"))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
