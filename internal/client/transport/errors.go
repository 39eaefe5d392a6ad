package transport

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophdiary/internal/common"
)

// HTTPError is returned for every response that did not carry usable data.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d: %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// Is maps well known statuses onto the shared sentinel errors.
func (e *HTTPError) Is(target error) bool {
	switch e.Status {
	case http.StatusUnauthorized:
		return target == common.ErrUnauthorized
	case http.StatusNotFound:
		return target == common.ErrNotFound
	case http.StatusConflict:
		return target == common.ErrConflict
	}
	return false
}

func isUnauthorized(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == http.StatusUnauthorized
}
