package auth

// Claims is the identity attached to a request after token verification.
type Claims struct {
	UserID string
	Email  string
}
