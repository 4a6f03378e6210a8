package application

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrProviderFailure   = errors.New("provider failure")
	ErrNotSentinel       = errors.New("not a load-more row")
	ErrInconsistentState = errors.New("inconsistent tree state")
)

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ProviderError reports a failed page request. The tree is left exactly as
// it was before the request, so the same fetch may be retried.
type ProviderError struct {
	Key       string
	PageToken string
	Err       error
}

func (e *ProviderError) Error() string {
	key := e.Key
	if key == "" {
		key = "<root>"
	}
	if e.PageToken == "" {
		return fmt.Sprintf("fetch children of %s: %v", key, e.Err)
	}
	return fmt.Sprintf("fetch children of %s (page %s): %v", key, e.PageToken, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderFailure
}

// Retryable is always true: provider failures never advance the cursor.
func (e *ProviderError) Retryable() bool {
	return true
}

// PreconditionError reports a structural operation that was refused.
type PreconditionError struct {
	Op     string
	Key    string
	Reason error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Reason)
}

func (e *PreconditionError) Unwrap() error {
	return e.Reason
}
