package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("flux")

	if GetErrorCode(err) != ErrUpstreamError {
		t.Fatalf("expected code %s, got %s", ErrUpstreamError, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got != "[UPSTREAM_ERROR] upstream failed: root" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	if WrapError(nil, ErrInternalError, "x") != nil {
		t.Fatalf("wrapping nil must return nil")
	}

	typed := NewError(ErrPersistenceFailed, "save failed")
	wrapped := fmt.Errorf("outer: %w", typed)
	if got := WrapError(wrapped, ErrInternalError, "ignored"); got != typed {
		t.Fatalf("expected existing *Error to be returned, got %v", got)
	}

	plain := errors.New("disk full")
	got := WrapError(plain, ErrInternalError, "unexpected")
	if got.Code != ErrInternalError || !errors.Is(got, plain) {
		t.Fatalf("unexpected wrap result %v", got)
	}
	if GetErrorCode(plain) != "" {
		t.Fatalf("plain errors carry no code")
	}
}
