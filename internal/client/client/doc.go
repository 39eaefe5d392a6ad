// Package client is the typed API contract of the diary server.
//
// # Overview
//
// The package provides:
//  1. The Client interface: one method per REST endpoint the diary core
//     consumes (auth tokens, sessions, users, encrypted posts).
//  2. RESTClient, the implementation riding on transport.Transport. It
//     holds no crypto; titles and contents pass through as ciphertext.
//
// # Error Handling
//
// Transport errors are returned as is, so callers match them with errors.Is
// against common.ErrNotFound, common.ErrUnauthorized and friends. A request
// the server answered with a false result yields ErrRejected.
//
// Concurrency & Contexts
//
// RESTClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation.
package client
