package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrEncode indicates a local file could not be turned into its transport encoding.
	ErrEncode = errors.New("file encoding failed")
	// ErrFileTooLarge indicates a file exceeds the whole-file encoding limit.
	ErrFileTooLarge = errors.New("file exceeds upload size limit")
)

// APIError carries a rejection the remote service expressed as an {error} body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// NetworkError wraps a transport-level failure (connection, timeout, malformed body)
// so callers never see raw low-level errors.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsAPIStatus reports whether err is an APIError with the given HTTP status.
func IsAPIStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
