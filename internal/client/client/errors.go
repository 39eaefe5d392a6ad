package client

import "errors"

// ErrRejected is returned when the server answered a mutating request with
// a false result.
var ErrRejected = errors.New("request rejected by server")
