// Package errors provides unit tests for error codes and wrapping.
package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

// TestErrorFormatting tests the message format with and without a cause.
func TestErrorFormatting(t *testing.T) {
	plain := New(ErrNotFound, "record not found")
	if !strings.Contains(plain.Error(), "NOT_FOUND") {
		t.Errorf("expected code in message, got %q", plain.Error())
	}

	cause := stderrors.New("disk full")
	wrapped := Wrap(ErrStoreUnavailable, "append failed", cause)
	msg := wrapped.Error()
	if !strings.Contains(msg, "STORE_UNAVAILABLE") || !strings.Contains(msg, "disk full") {
		t.Errorf("expected code and cause in message, got %q", msg)
	}
}

// TestUnwrapPreservesCause tests stdlib unwrapping through AppError.
func TestUnwrapPreservesCause(t *testing.T) {
	cause := stderrors.New("locked")
	wrapped := Wrap(ErrStoreUnavailable, "write failed", cause)
	if !stderrors.Is(wrapped, cause) {
		t.Error("expected errors.Is to find the cause through AppError")
	}
}

// TestIsMatchesCode tests code matching.
func TestIsMatchesCode(t *testing.T) {
	err := New(ErrDrainInProgress, "drain already in progress")
	if !Is(err, ErrDrainInProgress) {
		t.Error("expected Is to match the code")
	}
	if Is(err, ErrNotFound) {
		t.Error("expected Is to reject a different code")
	}
	if Is(stderrors.New("plain"), ErrInternal) {
		t.Error("expected Is to reject a plain error")
	}
}

// TestCodeOf tests code extraction with the internal fallback.
func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(ErrValidation, "bad input")); got != ErrValidation {
		t.Errorf("expected VALIDATION_ERROR, got %s", got)
	}
	if got := CodeOf(stderrors.New("plain")); got != ErrInternal {
		t.Errorf("expected INTERNAL_ERROR fallback, got %s", got)
	}
}
