package api

import "fmt"

// NetworkError reports a backend call that failed to complete, returned a
// non-2xx status, or returned a body that could not be decoded.
// StatusCode is 0 when no response was received.
type NetworkError struct {
	Op         string // e.g. "get_allowed_tools"
	StatusCode int
	Detail     string // Response body text for non-2xx responses
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: server error: %d %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: server error: %d", e.Op, e.StatusCode)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
