package services

import (
	"errors"
	"fmt"

	"costalert/internal/billing"
	"costalert/internal/core"
)

// ErrorKind is the category reported on stderr, in the daily error block and
// as the Sentry error_type tag.
type ErrorKind string

const (
	KindConfiguration  ErrorKind = "ConfigurationError"
	KindAuthentication ErrorKind = "AuthenticationError"
	KindAPI            ErrorKind = "APIError"
	KindUnexpected     ErrorKind = "UnexpectedError"
)

// Classify maps an error to its category. Provider rate limits, timeouts
// and transport failures are API errors: fatal for this run, recovered by
// the next scheduled one.
func Classify(err error) ErrorKind {
	var apiErr *billing.APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrConfiguration):
		return KindConfiguration
	case billing.IsAuthError(err):
		return KindAuthentication
	case billing.IsRetryable(err), errors.As(err, &apiErr):
		return KindAPI
	default:
		return KindUnexpected
	}
}

// RunError is a failure that has already been classified and recorded.
type RunError struct {
	Kind  ErrorKind
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
