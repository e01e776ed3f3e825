package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidState    = errors.New("invalid session state")
	ErrBusy            = errors.New("scan already in progress")
	ErrNotReady        = errors.New("report not ready")
	ErrIO              = errors.New("asset read failure")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstream        = errors.New("upstream failure")
	ErrMalformedReport = errors.New("malformed report")
	ErrUnauthorized    = errors.New("unauthorized")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// UpstreamError is a failed call to the remote generation API.
type UpstreamError struct {
	Operation string
	Code      int
	Status    string
	Message   string
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "upstream error"
	}
	switch {
	case e.Status != "" && e.Message != "":
		return fmt.Sprintf("%s failed: %d %s: %s", e.Operation, e.Code, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s failed: %d: %s", e.Operation, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s failed: %d %s", e.Operation, e.Code, e.Status)
	}
}
