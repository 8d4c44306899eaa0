package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the provider rejects the credential
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited is returned when the provider throttles the account
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrTimeout is returned on request or gateway timeouts
	ErrTimeout = errors.New("request timed out")

	// ErrServerError is returned for 5xx responses
	ErrServerError = errors.New("server error")

	// ErrConnection is returned when the provider cannot be reached
	ErrConnection = errors.New("connection error")
)

// APIError is a provider response that could not be turned into data.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Err, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err means the credential was rejected.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsRetryable reports whether a later run could succeed without any change
// on our side.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, ErrConnection) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}

	return false
}
