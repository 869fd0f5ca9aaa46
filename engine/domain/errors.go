package domain

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/WessleyAI/overflow-mcp/pkg/resilience"
)

// Sentinel errors.
var (
	// ErrInvalidParams is wrapped by every ValidationError.
	ErrInvalidParams = errors.New("invalid params")
	// ErrOverload signals the upstream rejected a call for exceeding its
	// rate. It is the invoker's retry sentinel.
	ErrOverload = resilience.ErrOverload
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidParams }

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// UpstreamError is a non-2xx response from the Q&A API. A 429 status also
// matches ErrOverload.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream http %d", e.Status)
	}
	return fmt.Sprintf("upstream http %d: %s", e.Status, e.Message)
}

// Is makes errors.Is(err, ErrOverload) true for 429 responses.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrOverload && e.Status == http.StatusTooManyRequests
}

// IsOverload reports whether err is an upstream overload signal.
func IsOverload(err error) bool {
	return errors.Is(err, ErrOverload)
}
