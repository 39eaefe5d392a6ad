// Package cli provides the interactive gophdiary command-line client.
//
// It wires configuration, the local key database, the API transport and
// the services, then runs a REPL. Typical flow: restore the previous
// session from the refresh cookie if possible, warn when the device key is
// missing or belongs to another account, and execute user commands.
//
// Key features:
//   - join / verify: create an account; the device key is generated on verify
//   - login / logout / passwd / forgot / reset
//   - list / show / write / edit / delete diary posts
//   - sessions / revoke: manage logged-in devices
//   - key / export / import / newkey: manage the device secret key
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
