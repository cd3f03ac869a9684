package manager

import (
	"errors"
	"net/http"
)

// ModelNotReadyError signals that no model is idle and active. The HTTP
// layer answers 409 with {"needModelLoad": true}.
type ModelNotReadyError struct {
	State State
}

func (e *ModelNotReadyError) Error() string {
	if e.State != "" && e.State != StateIdle {
		return "model not ready: " + string(e.State)
	}
	return "model not ready: no active model"
}

// StatusCode implements the HTTP error mapping.
func (e *ModelNotReadyError) StatusCode() int { return http.StatusConflict }

// IsModelNotReady reports whether err indicates a missing or busy model.
func IsModelNotReady(err error) bool {
	var e *ModelNotReadyError
	return errors.As(err, &e)
}

// RequireReady returns a *ModelNotReadyError unless s is Ready.
func RequireReady(s Snapshot) error {
	if s.Ready() {
		return nil
	}
	return &ModelNotReadyError{State: s.State}
}
