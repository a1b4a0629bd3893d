package genjob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindRetryability(t *testing.T) {
	retryable := []Kind{KindRateLimit, KindNetworkError, KindTransient, KindTimeout, KindUnknown}
	for _, k := range retryable {
		if !k.IsRetryable() {
			t.Fatalf("expected %s to be retryable", k)
		}
	}
	terminal := []Kind{KindInvalidInput, KindCapacityExhausted, KindAuthError, KindFatal, KindCancelled}
	for _, k := range terminal {
		if k.IsRetryable() {
			t.Fatalf("expected %s to not be retryable", k)
		}
	}
}

func TestKindOfPrefersStructuredError(t *testing.T) {
	inner := NewError(KindAuthError, "", errors.New("bad key"))
	wrapped := fmt.Errorf("stage adapter: %w", inner)
	if kindOf(wrapped) != KindAuthError {
		t.Fatalf("expected wrapped *Error kind to win, got %s", kindOf(wrapped))
	}
	if kindOf(context.Canceled) != KindCancelled {
		t.Fatalf("expected context.Canceled to map to Cancelled")
	}
	if kindOf(context.DeadlineExceeded) != KindTimeout {
		t.Fatalf("expected deadline exceeded to map to Timeout")
	}
	if kindOf(errors.New("mystery")) != KindUnknown {
		t.Fatalf("expected unclassifiable error to map to Unknown")
	}
}

func TestKindFromStatus(t *testing.T) {
	cases := map[int]Kind{
		http.StatusUnauthorized:        KindAuthError,
		http.StatusForbidden:           KindAuthError,
		http.StatusTooManyRequests:     KindRateLimit,
		http.StatusInternalServerError: KindTransient,
		http.StatusBadGateway:          KindTransient,
		http.StatusBadRequest:          KindFatal,
	}
	for code, want := range cases {
		if got := KindFromStatus(code); got != want {
			t.Fatalf("status %d: expected %s, got %s", code, want, got)
		}
	}
}
