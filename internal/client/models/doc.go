// Package models defines client-side data models used by gophdiary:
// accounts and sessions, the wrapped private key, diary posts in their
// plaintext and encrypted (wire) forms, and request bodies of the REST API.
package models
