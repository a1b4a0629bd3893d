package genjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campaignforge/orchestrator/internal/pkg/httpx"
)

// Kind is the normalized error taxonomy every capability failure and
// orchestrator rejection is mapped into.
type Kind string

const (
	KindInvalidInput      Kind = "InvalidInput"
	KindCapacityExhausted Kind = "CapacityExhausted"
	KindAuthError         Kind = "AuthError"
	KindRateLimit         Kind = "RateLimit"
	KindTimeout           Kind = "Timeout"
	KindNetworkError      Kind = "NetworkError"
	KindTransient         Kind = "Transient"
	KindFatal             Kind = "Fatal"
	KindCancelled         Kind = "Cancelled"
	KindUnknown           Kind = "Unknown"
)

// Error is the structured error type returned by capability adapters, the
// Scheduler and the Orchestrator API. It wraps the underlying cause while
// exposing a stable Kind that callers can branch on. RetryAfter, when set
// by an adapter from an upstream Retry-After header, overrides the
// executor's computed backoff for the next attempt.
type Error struct {
	Kind       Kind
	Field      string
	Current    int
	Max        int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s", e.Kind)
	if e.Field != "" {
		msg = fmt.Sprintf("%s[%s]", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a capability/orchestrator Error.
func NewError(kind Kind, field string, err error) *Error {
	return &Error{Kind: kind, Field: field, Err: err}
}

// NewCapacityError builds the CapacityExhausted{field, current, max} variant
// used by the Scheduler on synchronous admission rejection.
func NewCapacityError(field string, current, max int) *Error {
	return &Error{Kind: KindCapacityExhausted, Field: field, Current: current, Max: max}
}

// IsRetryable reports whether a Kind is worth retrying under the Pipeline
// Executor's backoff policy. Unknown is treated like Transient: an error
// the classifier couldn't place gets the benefit of the doubt.
func (k Kind) IsRetryable() bool {
	switch k {
	case KindRateLimit, KindNetworkError, KindTransient, KindTimeout, KindUnknown:
		return true
	default:
		return false
	}
}

// kindOf classifies an arbitrary error returned by a capability call into a
// Kind, preferring an explicit *Error if the adapter already produced one.
func kindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if httpx.IsRetryableError(err) {
		return KindTransient
	}
	return KindUnknown
}

// KindFromStatus maps an upstream HTTP status code to a Kind, grounded in
// httpx.ClassifyStatus so capability adapters share one classification path.
func KindFromStatus(code int) Kind {
	switch httpx.ClassifyStatus(code) {
	case httpx.StatusKindAuth:
		return KindAuthError
	case httpx.StatusKindRateLimit:
		return KindRateLimit
	case httpx.StatusKindTransient:
		return KindTransient
	case httpx.StatusKindFatal:
		return KindFatal
	default:
		return KindUnknown
	}
}
