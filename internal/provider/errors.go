package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCEPNotFound signals the postal code provider answered cleanly but
// knows no such code. Distinguished from transport errors.
var ErrCEPNotFound = errors.New("postal code not found")

// TimeoutError means a provider attempt exceeded its time budget. It
// marks one failed attempt, not a dead provider.
type TimeoutError struct {
	Provider string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %s: request timed out", e.Provider)
}

// NetworkError wraps a transport-level failure reaching a provider.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProviderError is a non-2xx HTTP status or a provider-reported
// business error.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("provider %s: status %d", e.Provider, e.Status)
}

// Attempt records one provider failure inside a cascade.
type Attempt struct {
	Provider string
	Err      error
}

// CascadeError carries every provider's failure reason after the whole
// cascade was exhausted.
type CascadeError struct {
	Attempts []Attempt
}

func (e *CascadeError) Error() string {
	reasons := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		reasons[i] = a.Err.Error()
	}
	return "all providers unavailable: " + strings.Join(reasons, "; ")
}
