package users

import "time"

// User is an account created from an external OAuth identity. INRLow/INRHigh
// is the therapeutic target range used to flag lab results.
type User struct {
	ID string

	Provider       string
	ProviderUserID string

	Email       string
	DisplayName string

	INRLow  float64
	INRHigh float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	DefaultINRLow  = 2.0
	DefaultINRHigh = 3.0
)
