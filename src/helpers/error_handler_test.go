package helpers

import (
	"errors"
	"testing"

	"squeeze-trader/src/logger"
)

func TestValidationErrorUnwrapsSentinel(t *testing.T) {
	err := NewValidationError(ErrNonPositivePrice, "exit price %.2f", -1.0)
	if !errors.Is(err, ErrNonPositivePrice) {
		t.Fatalf("expected sentinel in chain, got %v", err)
	}
	if !IsInputError(err) {
		t.Fatal("validation error should count as input error")
	}
	if got := err.Error(); got != "exit price -1.00: price must be positive" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestInvariantErrorIsInputError(t *testing.T) {
	err := NewInvariantError(ErrInvalidExitReason, "reason %q", "FOO")
	var inv *InvariantError
	if !errors.As(err, &inv) {
		t.Fatal("expected InvariantError")
	}
	if !IsInputError(err) {
		t.Fatal("invariant error should count as input error")
	}
	if IsInputError(NewDatabaseError(errors.New("x"), "save")) {
		t.Fatal("database error is not an input error")
	}
}

func TestExecuteWithRetry(t *testing.T) {
	h := NewErrorHandler(logger.NewNopLogger())
	h.BaseDelay = 0

	calls := 0
	err := h.ExecuteWithRetry("save trade", func() error {
		calls++
		if calls < 3 {
			return errors.New("busy")
		}
		return nil
	}, 5)
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third call, got err=%v calls=%d", err, calls)
	}

	calls = 0
	err = h.ExecuteWithRetry("save trade", func() error {
		calls++
		return errors.New("down")
	}, 2)
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) || calls != 2 {
		t.Fatalf("expected DatabaseError after 2 calls, got %v (%d)", err, calls)
	}
	if h.ErrorCount != 1 {
		t.Fatalf("error count = %d, want 1", h.ErrorCount)
	}
}

func TestHealthyTracksFailures(t *testing.T) {
	h := NewErrorHandler(logger.NewNopLogger())
	h.BaseDelay = 0
	h.MaxErrorsBeforeRestart = 2

	fail := func() error { return errors.New("locked") }
	h.ExecuteWithRetry("save metrics", fail, 1)
	if !h.Healthy() {
		t.Fatal("one failure should stay healthy")
	}
	h.ExecuteWithRetry("save metrics", fail, 1)
	if h.Healthy() {
		t.Fatal("two failures should be unhealthy")
	}
	h.ExecuteWithRetry("save metrics", func() error { return nil }, 1)
	if !h.Healthy() {
		t.Fatal("a success should bring the count back under the threshold")
	}
}
