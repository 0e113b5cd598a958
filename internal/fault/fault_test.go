package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Message(t *testing.T) {
	err := UnsafeRollback("art-1", "ver-9", "target removes required inputs")
	got := err.Error()
	want := "UNSAFE_ROLLBACK: target removes required inputs (artifact=art-1, version=ver-9)"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestHelpers_MatchWrappedErrors(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("detect: %w", Retrieval("art-1", cause))

	if !IsRetrieval(err) {
		t.Error("IsRetrieval failed through wrapping")
	}
	if IsGeneration(err) {
		t.Error("IsGeneration matched a retrieval error")
	}
	if !errors.Is(err, cause) {
		t.Error("underlying cause lost through Unwrap")
	}
}

func TestHelpers_NonFaultErrors(t *testing.T) {
	plain := errors.New("boom")
	if IsRetrieval(plain) || IsGeneration(plain) || IsUnsafeRollback(plain) ||
		IsConcurrentModification(plain) || IsValidation(plain) {
		t.Error("plain error matched a fault code")
	}
}

func TestInvalidPayload_IsGeneration(t *testing.T) {
	err := InvalidPayload("art-1", "empty code payload")
	if !IsGeneration(err) {
		t.Error("InvalidPayload must classify as a generation failure")
	}
}
