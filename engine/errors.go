package engine

import (
	"errors"
	"fmt"
)

// ErrNoCache is returned when a cache fallback was requested but nothing has
// ever been persisted. It is the only acquisition error that surfaces as a
// user-visible "no data" state; everything else downgrades to a fallback.
var ErrNoCache = errors.New("no cached payload available")

// NetworkError wraps a failed fetch or a non-success status.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError wraps a response that parsed incorrectly or did not match
// the expected feed shape (including a file caught mid-write).
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validation: %v", e.Err) }
func (e *ValidationError) Unwrap() error { return e.Err }
