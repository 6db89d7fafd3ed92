package sdk

import "time"

// Wire types mirror the API's JSON responses.

type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	INRLow      float64   `json:"inr_low"`
	INRHigh     float64   `json:"inr_high"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProfileUpdate struct {
	DisplayName *string  `json:"display_name,omitempty"`
	INRLow      *float64 `json:"inr_low,omitempty"`
	INRHigh     *float64 `json:"inr_high,omitempty"`
}

type Medication struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Strength  string    `json:"strength"`
	Unit      string    `json:"unit"`
	Active    bool      `json:"active"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MedicationCreate struct {
	Name     string `json:"name"`
	Strength string `json:"strength,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type MedicationUpdate struct {
	Name     *string `json:"name,omitempty"`
	Strength *string `json:"strength,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

type DosagePattern struct {
	ID           string    `json:"id"`
	MedicationID string    `json:"medication_id"`
	CycleDoses   []float64 `json:"cycle_doses"`
	StartDate    string    `json:"start_date"`
	EndDate      *string   `json:"end_date,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type DosagePatternCreate struct {
	CycleDoses []float64 `json:"cycle_doses"`
	StartDate  string    `json:"start_date"`         // YYYY-MM-DD
	EndDate    string    `json:"end_date,omitempty"` // YYYY-MM-DD
}

type IntakeLog struct {
	ID           string    `json:"id"`
	MedicationID string    `json:"medication_id"`
	TakenAt      time.Time `json:"taken_at"`
	ActualDose   float64   `json:"actual_dose"`
	ExpectedDose *float64  `json:"expected_dose,omitempty"`
	Variance     *float64  `json:"variance,omitempty"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

type IntakeLogCreate struct {
	TakenAt    time.Time `json:"taken_at"`
	ActualDose float64   `json:"actual_dose"`
	Notes      string    `json:"notes,omitempty"`
}

type INRTest struct {
	ID        string    `json:"id"`
	Value     float64   `json:"value"`
	TestedAt  time.Time `json:"tested_at"`
	InRange   bool      `json:"in_range"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

type INRTestCreate struct {
	Value    float64   `json:"value"`
	TestedAt time.Time `json:"tested_at"`
	Notes    string    `json:"notes,omitempty"`
}

type INRSchedule struct {
	ID          string    `json:"id"`
	CadenceDays int       `json:"cadence_days"`
	StartDate   string    `json:"start_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type INRScheduleSave struct {
	CadenceDays int    `json:"cadence_days"`
	StartDate   string `json:"start_date"` // YYYY-MM-DD
}

type ScheduleItem struct {
	ID              string `json:"id"`
	DueDate         string `json:"due_date"`
	Status          string `json:"status"`
	FulfilledByTest string `json:"fulfilled_by_test,omitempty"`
}

type AdherenceReport struct {
	From    string              `json:"from"`
	To      string              `json:"to"`
	Results []MedicationSummary `json:"results"`
}

type MedicationSummary struct {
	MedicationID   string  `json:"medication_id"`
	MedicationName string  `json:"medication_name"`
	Logs           int     `json:"logs"`
	WithExpected   int     `json:"with_expected"`
	OnPattern      int     `json:"on_pattern"`
	MeanVariance   float64 `json:"mean_variance"`
	MaxAbsVariance float64 `json:"max_abs_variance"`
}

type INRReport struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Tests       int      `json:"tests"`
	InRange     int      `json:"in_range"`
	InRangeRate float64  `json:"in_range_rate"`
	Latest      *INRTest `json:"latest,omitempty"`
	Trend       string   `json:"trend"`
}

type AuditRecord struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	At         time.Time `json:"at"`
}

type AuditPage struct {
	Records []AuditRecord `json:"records"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}
