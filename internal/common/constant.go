// Package common contains shared constants and sentinel errors used across
// gophdiary components.
package common

// AuthorizationHeaderName is the HTTP header that carries the bearer access
// token on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in the Authorization header.
const BearerPrefix = "Bearer "

// SecretSize is the number of random bytes behind every generated public or
// private key (512 bits).
const SecretSize = 64
