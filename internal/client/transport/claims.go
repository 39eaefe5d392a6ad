package transport

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token claims issued by the diary server.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the claims of token without verifying its signature.
// The client cannot verify the token anyway; the server does on every call.
func ParseClaims(token string) (*Claims, error) {
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return c, nil
}

// ExpiresAt returns the exp claim of token, or zero time when the token is
// opaque or has no exp.
func ExpiresAt(token string) time.Time {
	c, err := ParseClaims(token)
	if err != nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func expired(token string, now time.Time) bool {
	exp := ExpiresAt(token)
	return !exp.IsZero() && !now.Before(exp)
}
