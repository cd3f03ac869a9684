package relay

import (
	"errors"
	"net/http"
)

// ClientInputError reports a missing or blank required field.
type ClientInputError struct{ Msg string }

func (e *ClientInputError) Error() string { return e.Msg }

// StatusCode implements the HTTP error mapping.
func (e *ClientInputError) StatusCode() int { return http.StatusBadRequest }

// IsClientInput reports whether err is a *ClientInputError.
func IsClientInput(err error) bool {
	var e *ClientInputError
	return errors.As(err, &e)
}

// UpstreamError wraps a backend failure: a non-success status, a missing
// body or a broken stream. It is always delivered in-band.
type UpstreamError struct{ Err error }

func (e *UpstreamError) Error() string { return e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstream reports whether err is an *UpstreamError.
func IsUpstream(err error) bool {
	var e *UpstreamError
	return errors.As(err, &e)
}
