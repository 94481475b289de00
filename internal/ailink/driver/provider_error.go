package driver

import (
	"errors"
	"fmt"
)

// ProviderError is returned when a provider responds with a non-2xx status.
//
// Drivers should populate RawResponse with the provider response body bytes.
// RawResponse must never include API keys.
type ProviderError struct {
	Provider    string
	Operation   string
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	name := e.Provider
	if e.Operation != "" {
		name += " " + e.Operation
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", name, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", name, e.Message)
}

// StatusCode returns the provider HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		return perr.StatusCode
	}
	return 0
}
