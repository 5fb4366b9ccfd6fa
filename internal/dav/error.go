package dav

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is returned when a DAV request completes with a non-success
// status code. It exposes the code so callers can decide whether the
// failure is fatal or only affects the queried resource.
type HTTPError struct {
	Code int
	URL  string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.Code, http.StatusText(e.Code), e.URL)
}

// IsClientError reports whether err is an HTTPError with a 4xx code.
func IsClientError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Code >= 400 && httpErr.Code < 500
}

// IsIgnorableStatus reports whether err is an HTTPError with a status that
// marks a single resource as stale or inaccessible (403, 404, 410) rather
// than the whole server as broken.
func IsIgnorableStatus(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	switch httpErr.Code {
	case http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return true
	}
	return false
}
