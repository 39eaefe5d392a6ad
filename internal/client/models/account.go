package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the client's read-mostly copy of the server-side user.
type Account struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	PublicKey string  `json:"public_key"`
	AvatarURL *string `json:"avatar_url"`
}

// Session is an authenticated account plus its short-lived access token.
// ExpiresAt is taken from the token's exp claim and is zero when the token
// is opaque.
type Session struct {
	Account     Account
	AccessToken string
	ExpiresAt   time.Time
}

// ActiveSession is one logged-in device as reported by GET /auth/token.
type ActiveSession struct {
	IsMine         bool      `json:"is_mine"`
	TokenUUID      uuid.UUID `json:"token_uuid"`
	UserAgent      *string   `json:"user_agent,omitempty"`
	LastAccessedAt int64     `json:"last_accessed_at"`
}

// LastAccessed converts LastAccessedAt (unix seconds) to time.
func (s ActiveSession) LastAccessed() time.Time {
	return time.Unix(s.LastAccessedAt, 0)
}

// Registration is the outcome of a successful sign-up verification.
// WrappedKey is what the user should back up to restore the key elsewhere.
type Registration struct {
	Account    Account
	WrappedKey WrappedKey
}
