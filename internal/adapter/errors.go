package adapter

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized is returned when the provider rejects the credentials (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")
)

// ProviderError carries the failed operation and the provider's status code, if any.
type ProviderError struct {
	Op   string
	Code int
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the provider status code from err, or 0.
func StatusCode(err error) int {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return 0
}

// IsUnauthorized reports whether err means the credentials were rejected.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || StatusCode(err) == 401
}
