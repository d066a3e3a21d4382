package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Outcome labels used for logs and metrics.
const (
	OutcomeOK          = "ok"
	OutcomeHTTPError   = "http_error"
	OutcomeUnreachable = "unreachable"
	OutcomeLocalError  = "local_error"
)

// HTTPError is returned when the upstream answered with a non-2xx status.
// Body holds the decoded JSON body, or the raw text when it is not JSON.
type HTTPError struct {
	Service string
	URL     string
	Status  int
	Body    any
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream %s: status %d (URL: %s)", e.Service, e.Status, e.URL)
}

// UnreachableError is returned when no response was received: connection
// refused, DNS failure, timeout or too many redirects.
type UnreachableError struct {
	Service string
	URL     string
	Err     error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("upstream %s unreachable (URL: %s): %v", e.Service, e.URL, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// LocalError is returned when the request could not be built or its
// response could not be decoded.
type LocalError struct {
	Service string
	URL     string
	Err     error
}

func (e *LocalError) Error() string {
	return fmt.Sprintf("upstream %s local error (URL: %s): %v", e.Service, e.URL, e.Err)
}

func (e *LocalError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status == http.StatusNotFound
	}
	return false
}

// Outcome classifies err into one of the Outcome* labels.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var (
		httpErr        *HTTPError
		unreachableErr *UnreachableError
	)
	switch {
	case errors.As(err, &httpErr):
		return OutcomeHTTPError
	case errors.As(err, &unreachableErr):
		return OutcomeUnreachable
	default:
		return OutcomeLocalError
	}
}
