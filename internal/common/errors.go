// Package common defines shared constants and sentinel errors used across
// the client layers of gophdiary. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Transport-level errors.
	ErrNetwork      = errors.New("network failure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")

	// Key management errors.
	ErrKeyAbsent   = errors.New("no secret key on this device")
	ErrKeyMismatch = errors.New("secret key does not match the account")

	// Session/flow errors.
	ErrNotLoggedIn = errors.New("not logged in")
	ErrValidation  = errors.New("validation error")
)
