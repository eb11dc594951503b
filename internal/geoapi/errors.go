package geoapi

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps network failures: DNS, connection refused, timeouts
	ErrTransport = errors.New("geolocation API unreachable")

	// ErrMalformedResponse wraps bodies that are not JSON or lack required keys
	ErrMalformedResponse = errors.New("malformed geolocation API response")
)

// StatusError is returned when the API answers with a non-2xx status
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("geolocation API returned status %d", e.Code)
	}
	return fmt.Sprintf("geolocation API returned status %d: %s", e.Code, e.Message)
}

// ErrorKind maps an error to a short label for metrics and logs
func ErrorKind(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}
